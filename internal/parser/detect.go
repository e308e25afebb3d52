package parser

import (
	"path/filepath"
	"regexp"
	"strings"

	"framesight/internal/model"
)

var (
	staadJointMarker  = regexp.MustCompile(`(?i)\bJOINT\s+COORDINATES\b`)
	staadMemberMarker = regexp.MustCompile(`(?i)\bMEMBER\s+INCIDENCES\b`)
	sapJointRow       = regexp.MustCompile(`(?i)\bJoint\s*=\s*\S+.*\bX\s*=`)
	sapFrameRow       = regexp.MustCompile(`(?i)\bFrame\s*=\s*\S+.*\bJointI\s*=`)
	sapTableHeader    = regexp.MustCompile(`(?im)^\s*TABLE:`)
)

// DetectDialect picks the source dialect from the filename extension and
// content signatures. Content wins: an .std file full of key=value rows
// is parsed as SAP2000, not as what its name claims.
func DetectDialect(content []byte, filename string) model.Dialect {
	text := string(content)

	staadScore := 0
	if staadJointMarker.MatchString(text) {
		staadScore++
	}
	if staadMemberMarker.MatchString(text) {
		staadScore++
	}

	sapScore := 0
	if sapJointRow.MatchString(text) {
		sapScore++
	}
	if sapFrameRow.MatchString(text) {
		sapScore++
	}
	if sapTableHeader.MatchString(text) {
		sapScore++
	}

	if staadScore > sapScore {
		return model.DialectSTAAD
	}
	if sapScore > staadScore {
		return model.DialectSAP2000
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".std", ".staad":
		return model.DialectSTAAD
	case ".s2k", ".sap", ".$2k":
		return model.DialectSAP2000
	}
	return model.DialectUnknown
}
