package exif

import (
	"bytes"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/bep/imagemeta"
)

// Data holds EXIF fields split the way the critique prompt consumes them:
// camera identity, the technical settings the mentor reasons about, and a
// catch-all for everything else worth persisting.
type Data struct {
	Camera   map[string]string `json:"camera"`
	Settings map[string]string `json:"settings"`
	Other    map[string]string `json:"other"`
}

var cameraTags = map[string]bool{
	"Make":      true,
	"Model":     true,
	"Software":  true,
	"LensModel": true,
}

var settingTags = map[string]bool{
	"FNumber":                 true,
	"ExposureTime":            true,
	"ISOSpeedRatings":         true,
	"PhotographicSensitivity": true,
	"FocalLength":             true,
	"FocalLengthIn35mmFormat": true,
	"ExposureBiasValue":       true,
	"WhiteBalance":            true,
}

// Extract parses EXIF from raw image bytes. Missing or unparseable metadata
// is not an error: analyses proceed without it, so Extract returns nil
// instead of failing.
func Extract(data []byte) *Data {
	if len(data) == 0 {
		return nil
	}

	d := &Data{
		Camera:   map[string]string{},
		Settings: map[string]string{},
		Other:    map[string]string{},
	}
	found := false

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return ti.Source == imagemeta.EXIF
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			value := formatTagValue(ti.Tag, ti.Value)
			if value == "" {
				return nil
			}
			switch {
			case cameraTags[ti.Tag]:
				d.Camera[ti.Tag] = value
			case settingTags[ti.Tag]:
				d.Settings[ti.Tag] = value
			default:
				d.Other[ti.Tag] = value
			}
			found = true
			return nil
		},
	})

	if err != nil || !found {
		return nil
	}
	return d
}

// Flatten merges all categories into one map for persistence.
func (d *Data) Flatten() map[string]string {
	if d == nil {
		return nil
	}
	flat := make(map[string]string, len(d.Camera)+len(d.Settings)+len(d.Other))
	for _, m := range []map[string]string{d.Other, d.Camera, d.Settings} {
		for k, v := range m {
			flat[k] = v
		}
	}
	return flat
}

// PromptContext renders the EXIF block appended to the critique prompt.
// Returns "" when no EXIF was found so the prompt stays clean.
func (d *Data) PromptContext() string {
	if d == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n**Available EXIF Data:**\n")
	b.WriteString("- Aperture (f-stop): " + d.setting("FNumber") + "\n")
	b.WriteString("- Shutter Speed: " + d.setting("ExposureTime") + "\n")
	b.WriteString("- ISO: " + d.iso() + "\n")
	b.WriteString("- Focal Length: " + d.setting("FocalLength") + "\n")
	if maker, ok := d.Camera["Make"]; ok {
		b.WriteString("- Camera: " + strings.TrimSpace(maker+" "+d.Camera["Model"]) + "\n")
	}
	return b.String()
}

func (d *Data) setting(tag string) string {
	if v, ok := d.Settings[tag]; ok && v != "" {
		return v
	}
	return "Not available"
}

func (d *Data) iso() string {
	if v, ok := d.Settings["ISOSpeedRatings"]; ok && v != "" {
		return v
	}
	if v, ok := d.Settings["PhotographicSensitivity"]; ok && v != "" {
		return v
	}
	return "Not available"
}

// formatTagValue renders an EXIF value the way photographers read it:
// f-numbers and focal lengths as decimals, exposure times as fractions.
func formatTagValue(tag string, v any) string {
	switch tag {
	case "FNumber":
		if f, ok := floatValue(v); ok && f > 0 {
			return "f/" + strconv.FormatFloat(f, 'f', -1, 64)
		}
	case "FocalLength":
		if f, ok := floatValue(v); ok && f > 0 {
			return strconv.FormatFloat(f, 'f', -1, 64) + "mm"
		}
	case "ExposureTime":
		if r, ok := v.(*big.Rat); ok {
			if r.IsInt() {
				return r.Num().String() + "s"
			}
			return r.RatString() + "s"
		}
	}
	return stringValue(v)
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []string:
		if len(val) > 0 {
			return strings.TrimSpace(val[0])
		}
		return ""
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
		return ""
	case *big.Rat:
		if val.IsInt() {
			return val.Num().String()
		}
		return val.RatString()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

func floatValue(v any) (float64, bool) {
	switch val := v.(type) {
	case *big.Rat:
		f, _ := val.Float64()
		return f, true
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}
