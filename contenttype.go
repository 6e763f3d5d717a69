package ossd

import "strings"

// ContentType is a code from a closed, versioned content-type table. The
// metadata index stores the code, not the MIME string, to keep the column
// compact and indexable. Unknown MIME types map to ContentTypeOctetStream;
// the mapping is deliberately lossy.
type ContentType int

const (
	ContentTypeOctetStream ContentType = 0

	ContentTypeTextPlain      ContentType = 1
	ContentTypeTextHTML       ContentType = 2
	ContentTypeTextCSS        ContentType = 3
	ContentTypeTextJavaScript ContentType = 4
	ContentTypeTextCSV        ContentType = 5
	ContentTypeTextXML        ContentType = 6

	ContentTypeImageJPEG ContentType = 10
	ContentTypeImagePNG  ContentType = 11
	ContentTypeImageGIF  ContentType = 12
	ContentTypeImageWebP ContentType = 13
	ContentTypeImageSVG  ContentType = 14
	ContentTypeImageBMP  ContentType = 15
	ContentTypeImageICO  ContentType = 16

	ContentTypeAudioMPEG ContentType = 20
	ContentTypeAudioOgg  ContentType = 21
	ContentTypeAudioWAV  ContentType = 22
	ContentTypeAudioWebM ContentType = 23

	ContentTypeVideoMP4       ContentType = 30
	ContentTypeVideoOgg       ContentType = 31
	ContentTypeVideoWebM      ContentType = 32
	ContentTypeVideoQuickTime ContentType = 33

	ContentTypeJSON ContentType = 40
	ContentTypeXML  ContentType = 41
	ContentTypePDF  ContentType = 42
	ContentTypeZip  ContentType = 43
	ContentTypeGzip ContentType = 44
	ContentTypeTar  ContentType = 45

	ContentTypeMSWord       ContentType = 50
	ContentTypeMSExcel      ContentType = 51
	ContentTypeMSPowerPoint ContentType = 52
	ContentTypeDocx         ContentType = 53
	ContentTypeXlsx         ContentType = 54
	ContentTypePptx         ContentType = 55
)

// DefaultContentType is the MIME string for the generic binary code.
const DefaultContentType = "application/octet-stream"

var contentTypeToMIME = map[ContentType]string{
	ContentTypeOctetStream:    DefaultContentType,
	ContentTypeTextPlain:      "text/plain",
	ContentTypeTextHTML:       "text/html",
	ContentTypeTextCSS:        "text/css",
	ContentTypeTextJavaScript: "text/javascript",
	ContentTypeTextCSV:        "text/csv",
	ContentTypeTextXML:        "text/xml",
	ContentTypeImageJPEG:      "image/jpeg",
	ContentTypeImagePNG:       "image/png",
	ContentTypeImageGIF:       "image/gif",
	ContentTypeImageWebP:      "image/webp",
	ContentTypeImageSVG:       "image/svg+xml",
	ContentTypeImageBMP:       "image/bmp",
	ContentTypeImageICO:       "image/x-icon",
	ContentTypeAudioMPEG:      "audio/mpeg",
	ContentTypeAudioOgg:       "audio/ogg",
	ContentTypeAudioWAV:       "audio/wav",
	ContentTypeAudioWebM:      "audio/webm",
	ContentTypeVideoMP4:       "video/mp4",
	ContentTypeVideoOgg:       "video/ogg",
	ContentTypeVideoWebM:      "video/webm",
	ContentTypeVideoQuickTime: "video/quicktime",
	ContentTypeJSON:           "application/json",
	ContentTypeXML:            "application/xml",
	ContentTypePDF:            "application/pdf",
	ContentTypeZip:            "application/zip",
	ContentTypeGzip:           "application/gzip",
	ContentTypeTar:            "application/x-tar",
	ContentTypeMSWord:         "application/msword",
	ContentTypeMSExcel:        "application/vnd.ms-excel",
	ContentTypeMSPowerPoint:   "application/vnd.ms-powerpoint",
	ContentTypeDocx:           "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	ContentTypeXlsx:           "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	ContentTypePptx:           "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

var mimeToContentType = func() map[string]ContentType {
	m := make(map[string]ContentType, len(contentTypeToMIME)+1)
	for code, mime := range contentTypeToMIME {
		m[mime] = code
	}
	// image/jpg is a common non-standard spelling
	m["image/jpg"] = ContentTypeImageJPEG
	return m
}()

// ParseContentType maps a MIME string onto the code table. The string is
// normalized (lowercased, parameters such as charset stripped); anything
// not in the table maps to ContentTypeOctetStream. Uploads never fail on an
// unrecognized MIME type.
func ParseContentType(mime string) ContentType {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if code, ok := mimeToContentType[mime]; ok {
		return code
	}
	return ContentTypeOctetStream
}

// MIME returns the MIME string for the code. Unknown codes (for example a
// row written by a newer table version) fall back to the generic binary type.
func (c ContentType) MIME() string {
	if mime, ok := contentTypeToMIME[c]; ok {
		return mime
	}
	return DefaultContentType
}
