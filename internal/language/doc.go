// Package language normalizes the language codes users pass on the command
// line and the language tags ffprobe reports on audio streams.
//
// Parsing is delegated to golang.org/x/text/language so BCP 47 tags
// ("zh-Hans", "pt_BR") and ISO 639-2 stream tags ("eng", "jpn") compare on
// their base language.
package language
