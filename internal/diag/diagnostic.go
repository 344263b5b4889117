package diag

import "fmt"

// Diagnostic is a single non-fatal finding.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Path     string
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s %s: %s", d.Severity, d.Code.ID(), d.Message)
	}
	return fmt.Sprintf("%s %s: %s (%s)", d.Severity, d.Code.ID(), d.Message, d.Path)
}

// Warning builds a warning diagnostic.
func Warning(code Code, path, msg string) Diagnostic {
	return Diagnostic{Severity: SevWarning, Code: code, Message: msg, Path: path}
}

// Info builds an informational diagnostic.
func Info(code Code, path, msg string) Diagnostic {
	return Diagnostic{Severity: SevInfo, Code: code, Message: msg, Path: path}
}
