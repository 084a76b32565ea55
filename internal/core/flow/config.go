package flow

// Config is the per-card configuration variant. The concrete types are
// *StartConfig, *ExperienceConfig and *CategoryConfig; the set is closed by
// the unexported method.
type Config interface {
	// Type is the node type the variant belongs to
	Type() NodeType
	// Name is the display label the config carries, empty when it has none
	Name() string
	// DTMF is the selection digit, 0 when the variant has none
	DTMF() int
	// Clone returns a deep copy
	Clone() Config

	sealed()
}

// NewConfig returns the empty config variant for a node type
func NewConfig(t NodeType, name string) Config {
	switch t {
	case NodeTypeExperience:
		return &ExperienceConfig{CardName: name}
	case NodeTypeCategory:
		return &CategoryConfig{ExperienceConfig: ExperienceConfig{CardName: name}}
	default:
		return &StartConfig{}
	}
}

// MenuKey binds a keypad key to the prompt played for it
type MenuKey struct {
	DTMF   string `json:"dtmf" validate:"required,menu_key"`
	Prompt int64  `json:"prompt" validate:"required"`
}

// StartConfig configures the welcome prompt behaviour of the start card
type StartConfig struct {
	InvalidPrompt  *int64  `json:"invalid_prompt,omitempty"`
	TimeoutPrompt  *int64  `json:"timeout_prompt,omitempty"`
	SkipToNextMenu MenuKey `json:"skip_to_next_menu"`
	MainMenu       MenuKey `json:"main_menu"`
	ExitPrompt     *int64  `json:"exit_prompt,omitempty"`
	GeneralTimeout int     `json:"general_timeout" validate:"required,min=1,max=9"`
	RetryCount     *int    `json:"retry_count,omitempty" validate:"omitempty,min=1,max=9"`
}

func (c *StartConfig) Type() NodeType { return NodeTypeStart }
func (c *StartConfig) Name() string   { return "" }
func (c *StartConfig) DTMF() int      { return 0 }
func (c *StartConfig) sealed()        {}

func (c *StartConfig) Clone() Config {
	out := *c
	out.InvalidPrompt = cloneInt64(c.InvalidPrompt)
	out.TimeoutPrompt = cloneInt64(c.TimeoutPrompt)
	out.ExitPrompt = cloneInt64(c.ExitPrompt)
	if c.RetryCount != nil {
		v := *c.RetryCount
		out.RetryCount = &v
	}
	return &out
}

// ExperienceConfig configures a top-level menu item
type ExperienceConfig struct {
	CardName  string `json:"name" validate:"required,max=100"`
	InputType string `json:"input_type,omitempty" validate:"omitempty,oneof=DTMF"`
	DTMFDigit int    `json:"dtmf_digit" validate:"required,min=1,max=9"`
	Prompt    int64  `json:"prompt" validate:"required"`
}

func (c *ExperienceConfig) Type() NodeType { return NodeTypeExperience }
func (c *ExperienceConfig) Name() string   { return c.CardName }
func (c *ExperienceConfig) DTMF() int      { return c.DTMFDigit }
func (c *ExperienceConfig) sealed()        {}

func (c *ExperienceConfig) Clone() Config {
	out := *c
	return &out
}

// AudioSourceKind selects where a category's audio comes from
type AudioSourceKind string

const (
	AudioSourcePlaylist AudioSourceKind = "playlist"
	AudioSourceUpload   AudioSourceKind = "upload"
)

// AudioSource is either a playlist reference or an uploaded file
type AudioSource struct {
	Source   AudioSourceKind `json:"source" validate:"required,oneof=playlist upload"`
	Playlist int64           `json:"playlist,omitempty"`
	FilePath string          `json:"file_path,omitempty"`
	FileName string          `json:"file_name,omitempty"`
	Duration float64         `json:"duration,omitempty"`
}

// CategoryConfig configures a sub-menu item
type CategoryConfig struct {
	ExperienceConfig `json:",squash"`
	Audio            AudioSource `json:"audio"`
}

func (c *CategoryConfig) Type() NodeType { return NodeTypeCategory }

func (c *CategoryConfig) Clone() Config {
	out := *c
	return &out
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
