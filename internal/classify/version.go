package classify

import (
	"fmt"

	"github.com/tetraminz/coaching_insights/internal/config"
	"github.com/tetraminz/coaching_insights/internal/dataset"
)

// BotVersion selects sessions by experiment id and the version tag on the
// last message. Nil bounds are open.
type BotVersion struct {
	Name          string
	Key           string
	ExperimentIDs []string
	MinVersion    *int
	MaxVersion    *int
	Control       bool
}

func BotsFromConfig(bots []config.BotConfig) []BotVersion {
	out := make([]BotVersion, 0, len(bots))
	for _, bot := range bots {
		out = append(out, BotVersion{
			Name:          bot.Name,
			Key:           bot.Key,
			ExperimentIDs: append([]string(nil), bot.ExperimentIDs...),
			MinVersion:    bot.MinVersion,
			MaxVersion:    bot.MaxVersion,
			Control:       bot.Control,
		})
	}
	return out
}

func (b BotVersion) Matches(session dataset.Session, messages []dataset.Message) bool {
	if !b.hasExperiment(session.Experiment.ID) {
		return false
	}
	return b.InRange(VersionFromLastMessage(messages))
}

func (b BotVersion) InRange(version int) bool {
	if b.MinVersion == nil {
		return true
	}
	if b.MaxVersion == nil {
		return version >= *b.MinVersion
	}
	return *b.MinVersion <= version && version <= *b.MaxVersion
}

// RangeLabel renders the version window for the definitions section.
func (b BotVersion) RangeLabel() string {
	switch {
	case b.MinVersion == nil:
		return "All versions"
	case b.MaxVersion == nil:
		return fmt.Sprintf("Version %d and above", *b.MinVersion)
	default:
		return fmt.Sprintf("Version %d to %d", *b.MinVersion, *b.MaxVersion)
	}
}

func (b BotVersion) hasExperiment(id string) bool {
	for _, candidate := range b.ExperimentIDs {
		if candidate == id {
			return true
		}
	}
	return false
}
