package domain

type Stage string

const (
	StageUnauthenticated Stage = "unauthenticated"
	StageAgeGate         Stage = "age-gate"
	StageHome            Stage = "home"
	StageCheckout        Stage = "checkout"
	StageProfile         Stage = "profile"
)

type User struct {
	Email string
}

// SessionState is a read-only view of a session for the rendering layer.
type SessionState struct {
	User        *User
	AgeVerified bool
	Stage       Stage
	CartVisible bool
	IsAdmin     bool
	ProfilePath []string
}
