package model

import "time"

// BlockKind tells a code block apart from a JSON data directive.
type BlockKind int

const (
	BlockCode BlockKind = iota
	BlockDirective
)

func (k BlockKind) String() string {
	if k == BlockDirective {
		return "directive"
	}
	return "code"
}

// Block is a single fenced region found in the input stream.
type Block struct {
	Kind BlockKind
	// Lang is the fence language tag as written, e.g. "python" or "JSON".
	Lang string
	// Body is the raw text between the fences, always newline terminated
	// unless empty.
	Body string
}

// Edit is one unit of work derived from a block. It is either an
// *UpdateEdit or a *RemoveEdit.
type Edit interface {
	Module() string
	isEdit()
}

// UpdatedMethod is a method replacement delimited by the
// BEGIN/END UPDATED METHOD markers.
type UpdatedMethod struct {
	Name string
	Text string
}

// UpdateEdit merges new code into a module.
type UpdateEdit struct {
	ModulePath string
	// SourcePath is the module path as the block wrote it.
	SourcePath     string
	CodeBody       string
	Lang           string
	ClassName      string
	MethodName     string
	Imports        []string
	UpdatedMethods []UpdatedMethod
}

func (e *UpdateEdit) Module() string { return e.ModulePath }
func (*UpdateEdit) isEdit()          {}

// RemoveEdit deletes named definitions from a module.
type RemoveEdit struct {
	ModulePath string
	SourcePath string
	Targets    []Target
}

func (e *RemoveEdit) Module() string { return e.ModulePath }
func (*RemoveEdit) isEdit()          {}

// TargetKind names what a removal target points at.
type TargetKind string

const (
	TargetClass    TargetKind = "class"
	TargetFunction TargetKind = "function"
	TargetMethod   TargetKind = "method"
	TargetVariable TargetKind = "variable"
)

// Target is a single removal target. ClassName is only meaningful for
// TargetMethod.
type Target struct {
	Kind      TargetKind
	Name      string
	ClassName string
}

func (t Target) String() string {
	if t.Kind == TargetMethod {
		return string(t.Kind) + " " + t.ClassName + "." + t.Name
	}
	return string(t.Kind) + " " + t.Name
}

// Result is the outcome of processing one block.
type Result struct {
	OK      bool
	Message string
	// Diff is set only when the caller asked for one and something was written.
	Diff string
	// Path is the resolved file the edit targeted, if any.
	Path    string
	Created bool
	Edit    Edit
}

// Config is the configuration record passed into every component.
type Config struct {
	WorkspaceRoot        string `yaml:"workspace_root"`
	UseWorkspaceRoot     bool   `yaml:"use_workspace_root"`
	CreateMissingModules bool   `yaml:"create_missing_modules"`
	PreserveFormatting   bool   `yaml:"preserve_formatting"`
	EnableValidation     bool   `yaml:"enable_validation"`
	EnableBackup         bool   `yaml:"enable_backup"`
	EnableIntegration    bool   `yaml:"enable_integration"`
	EnableRemoval        bool   `yaml:"enable_removal"`
	StrictParsing        bool   `yaml:"strict_parsing"`
	FileEncoding         string `yaml:"file_encoding"`

	FormatterCommand []string      `yaml:"formatter_command"`
	FormatterTimeout time.Duration `yaml:"formatter_timeout"`
	BackupSuffix     string        `yaml:"backup_suffix"`
	// BaseDir is where relative module paths resolve when the workspace
	// root policy is off. Empty means the current directory.
	BaseDir string `yaml:"base_dir"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		CreateMissingModules: true,
		PreserveFormatting:   true,
		EnableValidation:     true,
		EnableBackup:         true,
		EnableIntegration:    true,
		EnableRemoval:        true,
		StrictParsing:        true,
		FileEncoding:         "utf-8",
		FormatterCommand:     []string{"black", "-q", "-"},
		FormatterTimeout:     30 * time.Second,
		BackupSuffix:         ".bak",
	}
}

// Summary holds the results of an operation for display.
type Summary struct {
	Created  []string
	Modified []string
	Failed   []string
	Skipped  []string
	Diffs    []string
	Message  string
}
