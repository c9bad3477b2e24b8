package director

// Storyboard is the plan of a run: one scene per narration line, in order.
type Storyboard struct {
	Version string  `yaml:"version"`
	Topic   string  `yaml:"topic"`
	RunID   string  `yaml:"run_id,omitempty"`
	Scenes  []Scene `yaml:"scenes"`
}

// Scene is a single unit of the video: one line of narration over one visual.
type Scene struct {
	Index         int    `yaml:"index"`
	SearchQuery   string `yaml:"search_query"`
	NarrationText string `yaml:"narration"`

	// Заполняется после разрешения сцены
	Visual   string  `yaml:"visual,omitempty"` // footage | still
	Duration float64 `yaml:"duration,omitempty"`
	Fallback string  `yaml:"fallback,omitempty"`
}
