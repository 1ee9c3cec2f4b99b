package meter

// Level is a coarse noise band used to colour meters and readings.
type Level string

const (
	LevelQuiet    Level = "quiet"
	LevelModerate Level = "moderate"
	LevelLoud     Level = "loud"
)

// Band boundaries in dB.
const (
	ModerateFrom = 60.0
	LoudFrom     = 85.0
)

// ClassifyLevel returns the band db falls into.
func ClassifyLevel(db float64) Level {
	switch {
	case db < ModerateFrom:
		return LevelQuiet
	case db < LoudFrom:
		return LevelModerate
	default:
		return LevelLoud
	}
}
