package world

import "github.com/yohamta/donburi"

// NoTint marks a drawable that is rendered with its original colors.
const NoTint int32 = -1

type IdentityData struct {
	ID   int32
	Name string
}

type PositionData struct {
	Position      Point
	ViewDirection Direction
	Rotation      float32
}

type DrawData struct {
	StateMachine *StateMachine
	TintColor    int32
}

type HealthData struct {
	Current int32
	Max     int32
}

// ResourceData backs both mana and stamina.
type ResourceData struct {
	Current          float32
	Max              float32
	RestorePerSecond float32
}

type UIData struct {
	Surface string
}

type VelocityData struct {
	X, Y float32
}

var (
	Identity = donburi.NewComponentType[IdentityData]()
	Position = donburi.NewComponentType[PositionData]()
	Draw     = donburi.NewComponentType[DrawData]()
	Health   = donburi.NewComponentType[HealthData]()
	Mana     = donburi.NewComponentType[ResourceData]()
	Stamina  = donburi.NewComponentType[ResourceData]()
	UI       = donburi.NewComponentType[UIData]()
	Velocity = donburi.NewComponentType[VelocityData]()
)

// NewHealth starts at full health.
func NewHealth(max int32) HealthData {
	return HealthData{Current: max, Max: max}
}

// NewResource starts full and does not regenerate.
func NewResource(max float32) ResourceData {
	return ResourceData{Current: max, Max: max}
}

func NewDraw() DrawData {
	return DrawData{
		StateMachine: DefaultStateMachine(),
		TintColor:    NoTint,
	}
}

func (r *ResourceData) restore(seconds float32) {
	if r.RestorePerSecond == 0 || r.Current >= r.Max {
		return
	}
	r.Current += r.RestorePerSecond * seconds
	if r.Current > r.Max {
		r.Current = r.Max
	}
}
