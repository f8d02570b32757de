package findres

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"remphot/internal/logger"
	"remphot/pkg/photerr"
)

// Flag is a boolean stored as the attribute value "y", or omitted.
type Flag bool

func (f Flag) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if !f {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: "y"}, nil
}

func (f *Flag) UnmarshalXMLAttr(attr xml.Attr) error {
	*f = attr.Value == "y"
	return nil
}

// SaveXML writes v as an indented XML document at path. An existing file
// is replaced only when force is set. The document is written to a
// temporary file in the same directory and renamed into place.
func SaveXML(path string, v interface{}, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", photerr.ErrExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %v", photerr.ErrSerialisation, err)
		}
	}
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", photerr.ErrSerialisation, path, err)
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", photerr.ErrSerialisation, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %v", photerr.ErrSerialisation, err)
	}
	logger.L.Debug("document written", zap.String("path", path))
	return nil
}

// LoadXML parses the XML document at path into v.
func LoadXML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", photerr.ErrSerialisation, err)
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", photerr.ErrSerialisation, path, err)
	}
	return nil
}
