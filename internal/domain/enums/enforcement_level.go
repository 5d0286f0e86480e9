package enums

type EnforcementLevel string

const (
	LevelWarning      EnforcementLevel = "warning"
	LevelMuteShort    EnforcementLevel = "mute_short"
	LevelMuteMedium   EnforcementLevel = "mute_medium"
	LevelMuteLong     EnforcementLevel = "mute_long"
	LevelBanTemporary EnforcementLevel = "ban_temporary"
	LevelBanPermanent EnforcementLevel = "ban_permanent"
)

type EscalationPolicy string

const (
	EscalationAccumulate EscalationPolicy = "accumulate"
)
