package director

import "fmt"

const StoryboardVersion = "1.0"

// QuerySuffixes vary the stock search per scene so the clips differ.
var QuerySuffixes = []string{"", " outdoors", " close-up", " cinematic"}

// Director turns a topic and its narration into a storyboard.
type Director struct {
	Suffixes []string
}

func NewDirector() *Director {
	return &Director{Suffixes: QuerySuffixes}
}

// PlanScenes pairs narration line i with the topic plus suffix i.
// The number of scenes equals the number of narration lines.
func (d *Director) PlanScenes(topic string, narrations []string) ([]Scene, error) {
	if len(narrations) == 0 {
		return nil, fmt.Errorf("no narration lines for %q", topic)
	}

	suffixes := d.Suffixes
	if len(suffixes) == 0 {
		suffixes = []string{""}
	}

	scenes := make([]Scene, len(narrations))
	for i, text := range narrations {
		scenes[i] = Scene{
			Index:         i,
			SearchQuery:   topic + suffixes[i%len(suffixes)],
			NarrationText: text,
		}
	}
	return scenes, nil
}

// Storyboard plans the scenes and wraps them with run metadata.
func (d *Director) Storyboard(topic, runID string, narrations []string) (*Storyboard, error) {
	scenes, err := d.PlanScenes(topic, narrations)
	if err != nil {
		return nil, err
	}
	return &Storyboard{
		Version: StoryboardVersion,
		Topic:   topic,
		RunID:   runID,
		Scenes:  scenes,
	}, nil
}
