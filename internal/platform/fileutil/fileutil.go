// Package fileutil agrupa los helpers de adjuntos: codificación inline como
// data URI, formato de tamaños y clasificación por tipo para la UI.
package fileutil

import (
	"encoding/base64"
	"errors"
	"math"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrNotDataURL  = errors.New("not a data url")
	ErrUnsupported = errors.New("unsupported file type")
)

const (
	MimePDF  = "application/pdf"
	MimeDoc  = "application/msword"
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

type Kind string

const (
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
	KindOther Kind = "other"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize formatea bytes en base 1024 con hasta dos decimales
// (0 => "0 Bytes", 1536 => "1.5 KB"). Por encima de GB se queda en GB.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	const k = 1024.0
	v := float64(bytes)
	i := 0
	for v >= k && i < len(sizeUnits)-1 {
		v /= k
		i++
	}
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// EncodeDataURL embebe content como data URI base64.
func EncodeDataURL(mimeType string, content []byte) string {
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// DecodeDataURL es la inversa de EncodeDataURL. Solo soporta payload base64.
func DecodeDataURL(url string) (string, []byte, error) {
	if !strings.HasPrefix(url, "data:") {
		return "", nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, ErrNotDataURL
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSuffix(meta, ";base64"), b, nil
}

// DetectType: tipo declarado, si no extensión, si no sniffing del contenido.
func DetectType(name, declared string, head []byte) string {
	if d := strings.TrimSpace(declared); d != "" && d != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(d); err == nil {
			return mt
		}
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MimePDF
	case ".doc":
		return MimeDoc
	case ".docx":
		return MimeDocx
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	if len(head) > 0 {
		mt, _, _ := mime.ParseMediaType(http.DetectContentType(head))
		return mt
	}
	return "application/octet-stream"
}

// Accepts replica el accept="image/*,.pdf,.doc,.docx" del formulario.
func Accepts(mimeType, name string) bool {
	if strings.HasPrefix(mimeType, "image/") {
		return true
	}
	switch mimeType {
	case MimePDF, MimeDoc, MimeDocx:
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".doc", ".docx":
		return true
	}
	return false
}

func IsImage(mimeType string) bool { return strings.HasPrefix(mimeType, "image/") }
func IsPDF(mimeType string) bool   { return mimeType == MimePDF }

func Classify(mimeType string) Kind {
	switch {
	case IsImage(mimeType):
		return KindImage
	case IsPDF(mimeType):
		return KindPDF
	default:
		return KindOther
	}
}
