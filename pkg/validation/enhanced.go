package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/flowgraph/ivrflow/internal/core/flow"
)

// MaxFlowNameLength bounds the flow name shown in the flow list
const MaxFlowNameLength = 40

var (
	nodeIDPattern  = regexp.MustCompile(`^node_\d+$`)
	edgeIDPattern  = regexp.MustCompile(`^node_\d+->node_\d+$`)
	menuKeyPattern = regexp.MustCompile(`^[0-9*#]$`)
)

// Validate is the shared validator instance with the flow tags registered
var Validate *validator.Validate

func init() {
	Validate = validator.New()

	Validate.RegisterValidation("node_id", validateNodeID)
	Validate.RegisterValidation("edge_id", validateEdgeID)
	Validate.RegisterValidation("menu_key", validateMenuKey)
	Validate.RegisterValidation("flow_name", validateFlowName)
	Validate.RegisterValidation("module", validateModule)

	Validate.RegisterStructValidation(validateAudioSource, flow.AudioSource{})
	Validate.RegisterStructValidation(validateStartConfig, flow.StartConfig{})

	// Report fields by their JSON names
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// ValidateWithPlayground validates s and converts failures to
// ValidationErrors
func ValidateWithPlayground(s interface{}) error {
	if err := Validate.Struct(s); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidateConfig checks the field shapes of a card configuration. Failures
// come back as a config-kind *Violation listing every bad field.
func ValidateConfig(cfg flow.Config) error {
	if cfg == nil {
		return flow.ErrNilConfig
	}
	err := ValidateWithPlayground(cfg)
	if err == nil {
		return nil
	}
	fields, ok := err.(ValidationErrors)
	if !ok {
		return err
	}
	v := newViolation(RuleConfigShape, "", "invalid %s configuration: %s", cfg.Type(), fields[0].Field)
	v.Fields = fields
	return v
}

// formatValidationErrors converts validator errors to our own format
func formatValidationErrors(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := make(ValidationErrors, 0, len(validationErrors))
	for _, fe := range validationErrors {
		out = append(out, ValidationError{
			Field:   fieldPath(fe.Namespace()),
			Value:   fe.Value(),
			Message: getErrorMessage(fe),
		})
	}
	return out
}

// fieldPath turns "CategoryConfig.ExperienceConfig.dtmf_digit" into
// "dtmf_digit": the root type and embedded struct names are dropped.
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	kept := parts[:0]
	for i, p := range parts {
		if i == 0 || p == "" || (p[0] >= 'A' && p[0] <= 'Z') {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return namespace
	}
	return strings.Join(kept, ".")
}

// getErrorMessage returns a human-readable error message
func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "max":
		return fmt.Sprintf("maximum value/length is %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "node_id":
		return "must be a node identifier like node_3"
	case "edge_id":
		return "must be an edge identifier like node_0->node_1"
	case "menu_key":
		return "must be a single key out of 0-9, * or #"
	case "flow_name":
		return getFlowNameMessage()
	case "module":
		return "must be Experience or Category"
	case "distinct_keys":
		return "skip to next menu and main menu must use different keys"
	default:
		return fmt.Sprintf("validation failed: %s", fe.Tag())
	}
}

func validateNodeID(fl validator.FieldLevel) bool {
	return nodeIDPattern.MatchString(fl.Field().String())
}

func validateEdgeID(fl validator.FieldLevel) bool {
	return edgeIDPattern.MatchString(fl.Field().String())
}

func validateMenuKey(fl validator.FieldLevel) bool {
	return menuKeyPattern.MatchString(fl.Field().String())
}

func validateFlowName(fl validator.FieldLevel) bool {
	return IsValidFlowName(fl.Field().String())
}

func validateModule(fl validator.FieldLevel) bool {
	_, err := flow.Module(fl.Field().String()).NodeType()
	return err == nil
}

// IsValidFlowName reports whether name can be used to save a flow
func IsValidFlowName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= 1 && n <= MaxFlowNameLength
}

// ValidateFlowName reports a config violation for a name that cannot be
// used to save a flow
func ValidateFlowName(name string) error {
	if IsValidFlowName(name) {
		return nil
	}
	v := newViolation(RuleConfigShape, "", "flow name must be between 1 and %d characters", MaxFlowNameLength)
	v.Fields = ValidationErrors{{Field: "name", Value: name, Message: getFlowNameMessage()}}
	return v
}

func getFlowNameMessage() string {
	return fmt.Sprintf("must be between 1 and %d characters", MaxFlowNameLength)
}

// validateAudioSource requires the fields of the selected audio source
func validateAudioSource(sl validator.StructLevel) {
	a := sl.Current().Interface().(flow.AudioSource)
	switch a.Source {
	case flow.AudioSourcePlaylist:
		if a.Playlist == 0 {
			sl.ReportError(a.Playlist, "playlist", "Playlist", "required", "")
		}
	case flow.AudioSourceUpload:
		if a.FilePath == "" {
			sl.ReportError(a.FilePath, "file_path", "FilePath", "required", "")
		}
		if a.FileName == "" {
			sl.ReportError(a.FileName, "file_name", "FileName", "required", "")
		}
		if a.Duration <= 0 {
			sl.ReportError(a.Duration, "duration", "Duration", "gt", "0")
		}
	}
}

// validateStartConfig rejects the same key for both welcome menu actions
func validateStartConfig(sl validator.StructLevel) {
	c := sl.Current().Interface().(flow.StartConfig)
	if c.MainMenu.DTMF != "" && c.MainMenu.DTMF == c.SkipToNextMenu.DTMF {
		sl.ReportError(c.MainMenu.DTMF, "main_menu.dtmf", "MainMenu.DTMF", "distinct_keys", "")
	}
}

// MarshalValidationErrors marshals validation errors to JSON
func MarshalValidationErrors(errors ValidationErrors) ([]byte, error) {
	type ErrorResponse struct {
		Errors []ValidationError `json:"errors"`
		Count  int               `json:"count"`
	}
	return json.Marshal(ErrorResponse{Errors: errors, Count: len(errors)})
}
