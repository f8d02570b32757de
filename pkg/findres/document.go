package findres

import (
	"encoding/xml"
	"fmt"
	"time"

	"remphot/pkg/photerr"
	"remphot/pkg/remfits"
)

type resultXML struct {
	Target   Flag    `xml:"target,attr"`
	Label    string  `xml:"label,attr"`
	RA       float64 `xml:"radeg"`
	Dec      float64 `xml:"decdeg"`
	Col      *int    `xml:"col,omitempty"`
	Row      *int    `xml:"row,omitempty"`
	ApSize   int     `xml:"apsize"`
	ADUs     float64 `xml:"adus"`
	Name     string  `xml:"name,omitempty"`
	DispName string  `xml:"dispname,omitempty"`
	ObjName  string  `xml:"objname,omitempty"`
}

// Findres is the persisted form of a result set.
type Findres struct {
	XMLName xml.Name    `xml:"Findres"`
	ObsDate time.Time   `xml:"obsdate"`
	Filter  string      `xml:"filter,omitempty"`
	ApSize  int         `xml:"apsize,omitempty"`
	Results []resultXML `xml:"result"`
}

// FilterText is the document spelling of f, empty when unknown.
func FilterText(f remfits.Filter) string {
	if f == remfits.FilterUnknown {
		return ""
	}
	return f.String()
}

func parseFilterText(s string) (remfits.Filter, error) {
	if s == "" {
		return remfits.FilterUnknown, nil
	}
	f, err := remfits.ParseFilter(s)
	if err != nil {
		return f, fmt.Errorf("%w: %v", photerr.ErrSerialisation, err)
	}
	return f, nil
}

func intSqrt(n int) int {
	r := 0
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// Document converts the set to its persisted form.
func (rs *ResultSet) Document() *Findres {
	doc := &Findres{
		ObsDate: rs.ObsDate,
		Filter:  FilterText(rs.Filter),
		ApSize:  intSqrt(rs.apsq),
		Results: make([]resultXML, len(rs.Results)),
	}
	for i, r := range rs.Results {
		x := resultXML{
			Target:   Flag(r.IsTarget),
			Label:    r.Label,
			RA:       r.RA,
			Dec:      r.Dec,
			ApSize:   r.ApSize,
			ADUs:     r.ADUs,
			Name:     r.Name,
			DispName: r.DispName,
			ObjName:  r.ObjName,
		}
		if r.Pixel != nil {
			col, row := r.Pixel.Col, r.Pixel.Row
			x.Col, x.Row = &col, &row
		}
		doc.Results[i] = x
	}
	return doc
}

// ResultSet rebuilds a result set from its persisted form. Labels are kept
// as stored.
func (doc *Findres) ResultSet() (*ResultSet, error) {
	f, err := parseFilterText(doc.Filter)
	if err != nil {
		return nil, err
	}
	rs := NewResultSet(doc.ObsDate, f, doc.ApSize)
	for _, x := range doc.Results {
		r := Result{
			RA:       x.RA,
			Dec:      x.Dec,
			ApSize:   x.ApSize,
			ADUs:     x.ADUs,
			Label:    x.Label,
			Name:     x.Name,
			DispName: x.DispName,
			IsTarget: bool(x.Target),
			ObjName:  x.ObjName,
		}
		if x.Col != nil && x.Row != nil {
			r.Pixel = &Pixel{Col: *x.Col, Row: *x.Row}
		}
		rs.Add(r)
	}
	return rs, nil
}

// Save writes the set as a Findres document.
func (rs *ResultSet) Save(path string, force bool) error {
	return SaveXML(path, rs.Document(), force)
}

// LoadResultSet reads a Findres document.
func LoadResultSet(path string) (*ResultSet, error) {
	var doc Findres
	if err := LoadXML(path, &doc); err != nil {
		return nil, err
	}
	return doc.ResultSet()
}

// ObjLoc is the predicted position of one catalog object in an image.
type ObjLoc struct {
	Target   Flag    `xml:"target,attr"`
	Unusable Flag    `xml:"unusable,attr"`
	RA       float64 `xml:"radeg"`
	Dec      float64 `xml:"decdeg"`
	Col      int     `xml:"col"`
	Row      int     `xml:"row"`
	Name     string  `xml:"name"`
	DispName string  `xml:"dispname,omitempty"`
}

// Objloc is a snapshot of the catalog objects of a vicinity projected onto
// one image.
type Objloc struct {
	XMLName xml.Name  `xml:"Objloc"`
	ObsDate time.Time `xml:"obsdate"`
	Filter  string    `xml:"filter,omitempty"`
	Objects []ObjLoc  `xml:"object"`
}

// APEntry is the optimised aperture of one object.
type APEntry struct {
	ApSize  int    `xml:"apsize"`
	ObjInd  int    `xml:"objind"`
	ObjName string `xml:"objname"`
}

// APopt records the apertures chosen for the objects of one observation.
type APopt struct {
	XMLName   xml.Name  `xml:"APopt"`
	ObsDate   time.Time `xml:"obsdate"`
	ObsInd    uint      `xml:"obsind"`
	Filter    string    `xml:"filter,omitempty"`
	Cutoff    float64   `xml:"cutoff"`
	Apertures []APEntry `xml:"aperture"`
}
