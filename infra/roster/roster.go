// Package roster reads block input files into a constraints.Problem.
package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/resident-scheduler/core/constraints"
	"github.com/kilianp07/resident-scheduler/core/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// File is the on-disk layout of one block's input.
type File struct {
	Block     BlockDef      `json:"block" yaml:"block"`
	Shifts    []ShiftDef    `json:"shifts" yaml:"shifts" validate:"required,min=1,dive"`
	Residents []ResidentDef `json:"residents" yaml:"residents" validate:"required,min=1,dive"`
	Prior     []PriorDef    `json:"prior" yaml:"prior" validate:"omitempty,dive"`
}

type BlockDef struct {
	Number     int    `json:"number" yaml:"number" validate:"min=1,max=13"`
	StartDate  string `json:"start_date" yaml:"start_date" validate:"required,datetime=2006-01-02"`
	LengthDays int    `json:"length_days" yaml:"length_days" validate:"omitempty,min=1"`
	Timezone   string `json:"timezone" yaml:"timezone"`
}

type ShiftDef struct {
	Kind     string `json:"kind" yaml:"kind" validate:"required,oneof=day night swing"`
	MinStaff int    `json:"min_staff" yaml:"min_staff" validate:"min=0"`
	MaxStaff int    `json:"max_staff" yaml:"max_staff" validate:"min=0"`
	PodScope string `json:"pod_scope" yaml:"pod_scope" validate:"omitempty,oneof=purple orange"`
}

type ResidentDef struct {
	ID    string `json:"id" yaml:"id" validate:"required"`
	Name  string `json:"name" yaml:"name"`
	Level string `json:"level" yaml:"level" validate:"required,oneof=pgy1 pgy2 pgy3 chief ty fm_pgy1 fm_pgy2 im_pgy1"`
	Pod   string `json:"pod" yaml:"pod" validate:"required,oneof=purple orange"`
	// RequiredShifts overrides the level's base count.
	RequiredShifts *int         `json:"required_shifts" yaml:"required_shifts" validate:"omitempty,min=0"`
	TimeOff        []TimeOffDef `json:"time_off" yaml:"time_off" validate:"omitempty,dive"`
	Buddy          string       `json:"buddy" yaml:"buddy"`
	Rotation       *RangeDef    `json:"rotation" yaml:"rotation"`
}

type TimeOffDef struct {
	Start string `json:"start" yaml:"start" validate:"required,datetime=2006-01-02"`
	End   string `json:"end" yaml:"end" validate:"required,datetime=2006-01-02"`
	Kind  string `json:"kind" yaml:"kind" validate:"omitempty,oneof=pto rto"`
}

type RangeDef struct {
	Start string `json:"start" yaml:"start" validate:"required,datetime=2006-01-02"`
	End   string `json:"end" yaml:"end" validate:"required,datetime=2006-01-02"`
}

type PriorDef struct {
	Resident string `json:"resident" yaml:"resident" validate:"required"`
	Date     string `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	Kind     string `json:"kind" yaml:"kind" validate:"required,oneof=day night swing"`
	Pod      string `json:"pod" yaml:"pod" validate:"omitempty,oneof=purple orange"`
}

// Options controls how strictly a file is interpreted.
type Options struct {
	// AllowShortBlocks accepts any length_days instead of the standard
	// block length. Used by fixtures.
	AllowShortBlocks bool
}

// Load reads path, choosing the decoder from its extension.
func Load(path string, opts Options) (*constraints.Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	p, err := Decode(f, format, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode parses a yaml or json document and builds the problem.
func Decode(r io.Reader, format string, opts Options) (*constraints.Problem, error) {
	file, err := Parse(r, format)
	if err != nil {
		return nil, err
	}
	return file.Problem(opts)
}

// Parse decodes and validates the raw file without building model values.
func Parse(r io.Reader, format string) (*File, error) {
	var file File
	switch format {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&file); err != nil {
			return nil, fmt.Errorf("decode roster: %w", err)
		}
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("decode roster: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported roster format %q", format)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Validate checks the struct tags of every record.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fieldError(err)
	}
	return nil
}

// fieldError turns the first validator failure into an InvalidInputError.
func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewInvalidInput("roster", "%v", err)
	}
	fe := verrs[0]
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "File."))
	if fe.Param() != "" {
		return model.NewInvalidInput(field, "failed %s=%s (got %v)", fe.Tag(), fe.Param(), fe.Value())
	}
	return model.NewInvalidInput(field, "failed %s", fe.Tag())
}

// Problem converts the file into validated model values.
func (f *File) Problem(opts Options) (*constraints.Problem, error) {
	block, err := f.block(opts)
	if err != nil {
		return nil, err
	}
	catalog := make([]model.ShiftSpec, 0, len(f.Shifts))
	for _, s := range f.Shifts {
		kind, err := model.ParseShiftKind(s.Kind)
		if err != nil {
			return nil, model.NewInvalidInput("shifts.kind", "%v", err)
		}
		spec, err := model.NewShiftSpec(kind, s.MinStaff, s.MaxStaff, model.Pod(s.PodScope))
		if err != nil {
			return nil, err
		}
		catalog = append(catalog, spec)
	}
	cal, err := model.NewCalendar(block, catalog)
	if err != nil {
		return nil, err
	}

	residents := make([]model.Resident, 0, len(f.Residents))
	for _, rd := range f.Residents {
		res, err := rd.resident()
		if err != nil {
			return nil, err
		}
		residents = append(residents, res)
	}
	roster, err := model.NewRoster(residents)
	if err != nil {
		return nil, err
	}

	prior := make([]model.PriorAssignment, 0, len(f.Prior))
	for _, pd := range f.Prior {
		d, err := model.ParseDate(pd.Date)
		if err != nil {
			return nil, model.NewInvalidInput("prior.date", "%v", err)
		}
		kind, err := model.ParseShiftKind(pd.Kind)
		if err != nil {
			return nil, model.NewInvalidInput("prior.kind", "%v", err)
		}
		pod := model.Pod(pd.Pod)
		if res, ok := roster.Get(pd.Resident); ok && pod == "" {
			pod = res.Pod
		}
		prior = append(prior, model.PriorAssignment{ResidentID: pd.Resident, Date: d, Kind: kind, Pod: pod})
	}
	return constraints.NewProblem(cal, roster, prior)
}

func (f *File) block(opts Options) (model.Block, error) {
	start, err := model.ParseDate(f.Block.StartDate)
	if err != nil {
		return model.Block{}, model.NewInvalidInput("block.start_date", "%v", err)
	}
	length := f.Block.LengthDays
	if length == 0 {
		length = model.BlockLength
	}
	var bopts []model.BlockOption
	if opts.AllowShortBlocks {
		bopts = append(bopts, model.WithExpectedLength(length))
	}
	if f.Block.Timezone != "" {
		loc, err := time.LoadLocation(f.Block.Timezone)
		if err != nil {
			return model.Block{}, model.NewInvalidInput("block.timezone", "%v", err)
		}
		bopts = append(bopts, model.WithLocation(loc))
	}
	return model.NewBlock(f.Block.Number, start, length, bopts...)
}

func (rd ResidentDef) resident() (model.Resident, error) {
	level, err := model.ParseLevel(rd.Level)
	if err != nil {
		return model.Resident{}, model.NewInvalidInput("residents.level", "%s: %v", rd.ID, err)
	}
	res := model.Resident{
		ID:         rd.ID,
		Name:       rd.Name,
		Level:      level,
		Pod:        model.Pod(rd.Pod),
		BaseShifts: level.BaseShifts(),
		Buddy:      rd.Buddy,
	}
	if rd.RequiredShifts != nil {
		res.BaseShifts = *rd.RequiredShifts
	}
	for _, w := range rd.TimeOff {
		start, end, err := parseRange(w.Start, w.End)
		if err != nil {
			return model.Resident{}, model.NewInvalidInput("residents.time_off", "%s: %v", rd.ID, err)
		}
		kind := model.TimeOffKind(w.Kind)
		if kind == "" {
			kind = model.TimeOffPTO
		}
		res.TimeOff = append(res.TimeOff, model.TimeOffWindow{Start: start, End: end, Kind: kind})
	}
	if rd.Rotation != nil {
		start, end, err := parseRange(rd.Rotation.Start, rd.Rotation.End)
		if err != nil {
			return model.Resident{}, model.NewInvalidInput("residents.rotation", "%s: %v", rd.ID, err)
		}
		res.Rotation = &model.Rotation{Start: start, End: end}
	}
	return res, nil
}

func parseRange(from, to string) (model.Date, model.Date, error) {
	start, err := model.ParseDate(from)
	if err != nil {
		return model.Date{}, model.Date{}, err
	}
	end, err := model.ParseDate(to)
	if err != nil {
		return model.Date{}, model.Date{}, err
	}
	return start, end, nil
}
