package edits

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"remphot/internal/logger"
	"remphot/pkg/findres"
	"remphot/pkg/photerr"
)

// NameChecker reports whether a name is already taken in the catalog.
// *catalog.Store implements it.
type NameChecker interface {
	NameInUse(ctx context.Context, name string) (bool, error)
}

// Log is the ordered list of edits made to the results of one vicinity.
type Log struct {
	Vicinity string
	Edits    []Edit

	names map[string]struct{}
}

// NewLog returns an empty log for vicinity.
func NewLog(vicinity string) *Log {
	return &Log{Vicinity: vicinity, names: make(map[string]struct{})}
}

func nameKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Add queues an edit, giving it an ID if it has none. A created object
// may not reuse a name already queued.
func (l *Log) Add(e Edit) (Edit, error) {
	if !e.Op.valid() {
		return e, fmt.Errorf("unknown edit operation %q", e.Op)
	}
	if e.Op == OpCreate || e.Op == OpCreateCalc {
		if l.names == nil {
			l.names = make(map[string]struct{})
		}
		if _, dup := l.names[nameKey(e.Name)]; dup {
			return e, fmt.Errorf("%w: name %q already queued", photerr.ErrDuplicate, e.Name)
		}
		l.names[nameKey(e.Name)] = struct{}{}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	l.Edits = append(l.Edits, e)
	return e, nil
}

// Pending counts the edits not yet applied.
func (l *Log) Pending() int {
	n := 0
	for _, e := range l.Edits {
		if !e.Done {
			n++
		}
	}
	return n
}

// Apply performs every pending edit on rs in order, stopping at the first
// failure. Edits applied before the failure stay marked done.
func (l *Log) Apply(rs *findres.ResultSet, env *Env) error {
	applied := 0
	for i := range l.Edits {
		e := &l.Edits[i]
		if e.Done {
			continue
		}
		if err := e.Apply(rs, env); err != nil {
			return err
		}
		applied++
	}
	logger.L.Info("edits applied", zap.String("vicinity", l.Vicinity), zap.Int("applied", applied))
	return nil
}

// NextAvailableName returns base, or the first of base-001, base-002, ...
// that is neither in the catalog nor queued in the log.
func (l *Log) NextAvailableName(ctx context.Context, cat NameChecker, base string) (string, error) {
	for n := 0; n < 1000; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s-%03d", base, n)
		}
		if _, queued := l.names[nameKey(name)]; queued {
			continue
		}
		used, err := cat.NameInUse(ctx, name)
		if err != nil {
			return "", err
		}
		if !used {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: no free name based on %q", photerr.ErrDuplicate, base)
}

type editXML struct {
	Op       Op           `xml:"op,attr"`
	ID       string       `xml:"id,attr"`
	Done     findres.Flag `xml:"done,attr"`
	Col      int          `xml:"col"`
	Row      int          `xml:"row"`
	Name     string       `xml:"name,omitempty"`
	DispName string       `xml:"dispname,omitempty"`
	ApSize   int          `xml:"apsize,omitempty"`
	ADUs     float64      `xml:"adus,omitempty"`
	ObjInd   *int         `xml:"objind,omitempty"`
	OldLabel string       `xml:"oldlabel,omitempty"`
	NewLabel string       `xml:"newlabel,omitempty"`
}

// Edits1 is the persisted form of a Log.
type Edits1 struct {
	XMLName  xml.Name  `xml:"Edits1"`
	Vicinity string    `xml:"vicinity"`
	Edits    []editXML `xml:"edit"`
}

// Save writes the log as an Edits1 document.
func (l *Log) Save(path string, force bool) error {
	doc := Edits1{Vicinity: l.Vicinity}
	for _, e := range l.Edits {
		x := editXML{
			Op: e.Op, ID: e.ID.String(), Done: findres.Flag(e.Done),
			Col: e.Col, Row: e.Row,
			Name: e.Name, DispName: e.DispName,
			ApSize: e.ApSize, ADUs: e.ADUs,
			ObjInd:   e.ObjInd,
			OldLabel: e.OldLabel, NewLabel: e.NewLabel,
		}
		doc.Edits = append(doc.Edits, x)
	}
	return findres.SaveXML(path, &doc, force)
}

// Load reads an Edits1 document.
func Load(path string) (*Log, error) {
	var doc Edits1
	if err := findres.LoadXML(path, &doc); err != nil {
		return nil, err
	}
	l := NewLog(doc.Vicinity)
	for _, x := range doc.Edits {
		id, err := uuid.Parse(x.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: edit id %q: %v", photerr.ErrSerialisation, x.ID, err)
		}
		e := Edit{
			ID: id, Op: x.Op, Done: bool(x.Done),
			Col: x.Col, Row: x.Row,
			Name: x.Name, DispName: x.DispName,
			ApSize: x.ApSize, ADUs: x.ADUs,
			ObjInd:   x.ObjInd,
			OldLabel: x.OldLabel, NewLabel: x.NewLabel,
		}
		if _, err := l.Add(e); err != nil {
			return nil, fmt.Errorf("%w: %v", photerr.ErrSerialisation, err)
		}
	}
	return l, nil
}
