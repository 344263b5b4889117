package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Project structure
	MissingDirectory        Code = 1001
	MissingRequiredFragment Code = 1002
	MissingOptionalFragment Code = 1003
	MissingLangDirectory    Code = 1004

	// Ordering
	UnresolvedChainMember Code = 2001
	AmbiguousChainMember  Code = 2002
	CompanionReplaced     Code = 2003
	CompanionUnmatched    Code = 2004

	// IO
	ReadFailed  Code = 4001
	WriteFailed Code = 4002

	// Project manifest
	InvalidManifest Code = 5001

	// External collaborators
	CollaboratorTermination Code = 6001
	CollaboratorUnavailable Code = 6002
	UnsupportedPlatform     Code = 6003
	RunnerConfigInvalid     Code = 6004

	// Spreadsheet reconciliation
	ValueMismatch      Code = 7001
	UnknownItem        Code = 7002
	InvalidSpreadsheet Code = 7003
)

var codeDescription = map[Code]string{
	UnknownCode:             "Unknown error",
	MissingDirectory:        "Required directory not found",
	MissingRequiredFragment: "Required fragment not found",
	MissingOptionalFragment: "Optional fragment not found",
	MissingLangDirectory:    "Language directory not found",
	UnresolvedChainMember:   "Chain member not found",
	AmbiguousChainMember:    "Chain member is not unique",
	CompanionReplaced:       "Companion replaced by a later file with the same prefix",
	CompanionUnmatched:      "Companion has no primary",
	ReadFailed:              "Failed to read file",
	WriteFailed:             "Failed to write file",
	InvalidManifest:         "Invalid project manifest",
	CollaboratorTermination: "External tool terminated",
	CollaboratorUnavailable: "External tool not available",
	UnsupportedPlatform:     "Unsupported platform",
	RunnerConfigInvalid:     "Runner config invalid",
	ValueMismatch:           "Fragment value differs from spreadsheet",
	UnknownItem:             "Item not present in spreadsheet",
	InvalidSpreadsheet:      "Invalid spreadsheet",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("STR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("ORD%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("EXT%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("CHK%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
