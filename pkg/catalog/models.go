package catalog

import "time"

// objRow is one row of objdata. Magnitude columns are nullable.
type objRow struct {
	ObjName  string   `gorm:"column:objname;primaryKey;size:64"`
	DispName string   `gorm:"column:dispname;size:64"`
	ObjType  string   `gorm:"column:objtype;size:32"`
	Vicinity string   `gorm:"column:vicinity;size:64;index"`
	RADeg    float64  `gorm:"column:radeg;not null"`
	DecDeg   float64  `gorm:"column:decdeg;not null"`
	RAPM     *float64 `gorm:"column:rapm"`
	DecPM    *float64 `gorm:"column:decpm"`
	RAErr    *float64 `gorm:"column:raerr"`
	DecErr   *float64 `gorm:"column:decerr"`
	Dist     *float64 `gorm:"column:dist"`
	RV       *float64 `gorm:"column:rv"`
	GMag     *float64 `gorm:"column:gmag"`
	GMagErr  *float64 `gorm:"column:gmagerr"`
	IMag     *float64 `gorm:"column:imag"`
	IMagErr  *float64 `gorm:"column:imagerr"`
	RMag     *float64 `gorm:"column:rmag"`
	RMagErr  *float64 `gorm:"column:rmagerr"`
	ZMag     *float64 `gorm:"column:zmag"`
	ZMagErr  *float64 `gorm:"column:zmagerr"`
	HMag     *float64 `gorm:"column:hmag"`
	HMagErr  *float64 `gorm:"column:hmagerr"`
	JMag     *float64 `gorm:"column:jmag"`
	JMagErr  *float64 `gorm:"column:jmagerr"`
	KMag     *float64 `gorm:"column:kmag"`
	KMagErr  *float64 `gorm:"column:kmagerr"`
	ApSize   int      `gorm:"column:apsize;not null;default:6"`
	Usable   bool     `gorm:"column:usable;not null"`
}

func (objRow) TableName() string { return "objdata" }

// aliasRow maps an alternative name to its canonical object. SBOK marks
// aliases entered by hand rather than imported.
type aliasRow struct {
	Alias   string `gorm:"column:alias;primaryKey;size:64"`
	ObjName string `gorm:"column:objname;size:64;not null;index"`
	Source  string `gorm:"column:source;size:32"`
	SBOK    bool   `gorm:"column:sbok;not null;default:false"`
}

func (aliasRow) TableName() string { return "objalias" }

// Observation is one exposure of a vicinity.
type Observation struct {
	ObsInd   uint      `gorm:"column:obsind;primaryKey;autoIncrement"`
	ObsDate  time.Time `gorm:"column:obsdate;not null;index"`
	Vicinity string    `gorm:"column:vicinity;size:64;index"`
	Filter   string    `gorm:"column:filter;size:4"`
	ExpTime  float64   `gorm:"column:exptime"`
	DithID   int       `gorm:"column:dithid"`
	Rejected bool      `gorm:"column:rejected;not null;default:false"`
}

func (Observation) TableName() string { return "obsinf" }

type fitsRow struct {
	ObsInd uint   `gorm:"column:obsind;primaryKey"`
	Data   []byte `gorm:"column:fitsgz;not null"`
}

func (fitsRow) TableName() string { return "fitsfile" }

// FlatBias indexes a daily flat or bias frame by filter and date.
type FlatBias struct {
	ID      uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Type    string    `gorm:"column:typ;size:16;not null;index:idx_forb"`
	Filter  string    `gorm:"column:filter;size:4;not null;index:idx_forb"`
	ObsDate time.Time `gorm:"column:obsdate;not null;index:idx_forb"`
	Data    []byte    `gorm:"column:fitsgz;not null"`
}

func (FlatBias) TableName() string { return "forbinf" }

// Identified records where an object was found in an observation.
type Identified struct {
	ObsInd  uint    `gorm:"column:obsind;primaryKey"`
	ObjName string  `gorm:"column:objname;primaryKey;size:64"`
	Col     int     `gorm:"column:pixcol"`
	Row     int     `gorm:"column:pixrow"`
	RADeg   float64 `gorm:"column:radeg"`
	DecDeg  float64 `gorm:"column:decdeg"`
	ApSize  int     `gorm:"column:apsize"`
	Label   string  `gorm:"column:label;size:8"`
}

func (Identified) TableName() string { return "identobj" }

// NotFound records why the target of an observation could not be found.
type NotFound struct {
	ObsInd    uint    `gorm:"column:obsind;primaryKey"`
	ObjName   string  `gorm:"column:objname;size:64"`
	Reason    string  `gorm:"column:reason"`
	ExpTime   float64 `gorm:"column:exptime"`
	ApSize    int     `gorm:"column:apsize"`
	SearchRad int     `gorm:"column:searchrad"`
}

func (NotFound) TableName() string { return "notfound" }

// ADUCalc is an aperture sum for one object in one observation.
type ADUCalc struct {
	ObsInd  uint    `gorm:"column:obsind;primaryKey"`
	ObjName string  `gorm:"column:objname;primaryKey;size:64"`
	ApSize  int     `gorm:"column:apsize;primaryKey"`
	ADUs    float64 `gorm:"column:adus"`
	ADUErr  float64 `gorm:"column:aduerr"`
}

func (ADUCalc) TableName() string { return "aducalc" }

func allModels() []interface{} {
	return []interface{}{
		&objRow{}, &aliasRow{}, &Observation{}, &fitsRow{},
		&FlatBias{}, &Identified{}, &NotFound{}, &ADUCalc{},
	}
}
