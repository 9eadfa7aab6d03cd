// Package pathbuilder derives the storage folder layout from a staff
// member's role, their company, the project address and the document type.
//
// The layout is reconstructible without the database:
//
//	/<Role>/<Company_Slug>/<Address_Slug>/<DocumentType>/<filename>
package pathbuilder

import (
	"strings"
	"unicode"
)

var slugReplacer = strings.NewReplacer(" ", "_", ",", "", "/", "", ".", "")

// TitleCase upper-cases the first letter of each whitespace-delimited word
// and lower-cases the rest. Whitespace is kept as is.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wordStart := true
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			wordStart = true
			b.WriteRune(r)
		case wordStart:
			wordStart = false
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Slug turns spaces into underscores and drops commas, slashes and dots.
func Slug(s string) string {
	return slugReplacer.Replace(s)
}

// StaffFolder is the root folder of a staff member.
func StaffFolder(role, companyName string) string {
	return "/" + TitleCase(role) + "/" + Slug(companyName)
}

// UploadFolder is the folder a submission of documentType for address is filed into.
func UploadFolder(role, companyName, address, documentType string) string {
	return StaffFolder(role, companyName) + "/" + Slug(TitleCase(address)) + "/" + TitleCase(documentType)
}

// FilePath joins folder and filename. The filename is not sanitized.
func FilePath(folder, filename string) string {
	return folder + "/" + filename
}
