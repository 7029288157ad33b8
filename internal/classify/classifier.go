package classify

import (
	"github.com/tetraminz/coaching_insights/internal/dataset"
)

// Classification is everything the aggregates need to know about one session.
type Classification struct {
	SessionID string
	Bot       *BotVersion
	// Method is Unknown for control sessions; DetectedMethod is the raw result.
	Method         Method
	DetectedMethod Method
	VersionNumber  int
	Split          bool
	Test           bool
}

func (c Classification) Excluded() bool {
	return c.Split || c.Test
}

func (c Classification) BotKey() string {
	if c.Bot == nil {
		return ""
	}
	return c.Bot.Key
}

type Classifier struct {
	bots         []BotVersion
	testSuffixes []string
}

func NewClassifier(bots []BotVersion, testSuffixes []string) *Classifier {
	return &Classifier{bots: bots, testSuffixes: testSuffixes}
}

func (c *Classifier) Bots() []BotVersion {
	return c.bots
}

func (c *Classifier) Bot(key string) (BotVersion, bool) {
	for _, bot := range c.bots {
		if bot.Key == key {
			return bot, true
		}
	}
	return BotVersion{}, false
}

// BotKeys lists bot keys in table order.
func (c *Classifier) BotKeys() []string {
	keys := make([]string, 0, len(c.bots))
	for _, bot := range c.bots {
		keys = append(keys, bot.Key)
	}
	return keys
}

// ExperimentIDs is the union of experiment ids over all bots.
func (c *Classifier) ExperimentIDs() []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, bot := range c.bots {
		for _, id := range bot.ExperimentIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Classifier) TestSuffixes() []string {
	return c.testSuffixes
}

func (c *Classifier) IsTest(session dataset.Session) bool {
	return dataset.IsTestAccount(session.Participant.Identifier, c.testSuffixes)
}

// ShouldExclude drops split sessions and staff test sessions.
func (c *Classifier) ShouldExclude(session dataset.Session, messages []dataset.Message) bool {
	return IsSplit(messages) || c.IsTest(session)
}

// ResolveBot returns the first bot in table order matching the session.
func (c *Classifier) ResolveBot(session dataset.Session, messages []dataset.Message) *BotVersion {
	for i := range c.bots {
		if c.bots[i].Matches(session, messages) {
			return &c.bots[i]
		}
	}
	return nil
}

func (c *Classifier) Classify(session dataset.Session, messages []dataset.Message) Classification {
	detected := DetectMethod(session, messages)
	bot := c.ResolveBot(session, messages)
	method := detected
	if bot != nil && bot.Control {
		method = MethodUnknown
	}
	return Classification{
		SessionID:      session.ID,
		Bot:            bot,
		Method:         method,
		DetectedMethod: detected,
		VersionNumber:  VersionFromLastMessage(messages),
		Split:          IsSplit(messages),
		Test:           c.IsTest(session),
	}
}
