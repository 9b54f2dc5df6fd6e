// Package presentation loads the named card presentations and turns them
// into reveal configurations.
package presentation

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/avvvet/valentine-services/internal/evasion"
	"github.com/avvvet/valentine-services/internal/reveal"
	"github.com/avvvet/valentine-services/internal/typewriter"
)

const DefaultName = "classic"

//go:embed presets.yaml
var builtin []byte

var ErrUnknownPreset = errors.New("unknown presentation")

type Theme struct {
	Accent     string `yaml:"accent" validate:"omitempty,hexcolor"`
	Background string `yaml:"background" validate:"omitempty,hexcolor"`
	Text       string `yaml:"text" validate:"omitempty,hexcolor"`
}

type Hint struct {
	Text   string `yaml:"text"`
	After  int    `yaml:"after" validate:"gte=0"`
	Before int    `yaml:"before" validate:"gtefield=After"`
}

type Preset struct {
	Name             string            `yaml:"name" validate:"required"`
	Theme            Theme             `yaml:"theme"`
	AutoOpen         bool              `yaml:"auto_open"`
	Arrival          []time.Duration   `yaml:"arrival" validate:"dive,gte=0"`
	ArrivalReveal    []int             `yaml:"arrival_reveal" validate:"dive,gte=0,lte=100"`
	OpenDelay        time.Duration     `yaml:"open_delay" validate:"gte=0"`
	CardDelay        time.Duration     `yaml:"card_delay" validate:"gte=0"`
	MessageDelay     time.Duration     `yaml:"message_delay" validate:"gte=0"`
	NoIsEvadableOnly bool              `yaml:"no_is_evadable_only"`
	Typewriter       typewriter.Config `yaml:"typewriter"`
	Evasion          evasion.Config    `yaml:"evasion"`
	Hint             Hint              `yaml:"hint"`
	Teases           []string          `yaml:"teases" validate:"dive,required"`
	TeaseFrom        int               `yaml:"tease_from" validate:"gte=0"`
}

type file struct {
	Presets []Preset `yaml:"presets" validate:"required,min=1,dive"`
}

// Set is a collection of presets keyed by name.
type Set map[string]Preset

// Builtin returns the presets shipped with the binary.
func Builtin() Set {
	set, err := Load(bytes.NewReader(builtin))
	if err != nil {
		panic(fmt.Sprintf("builtin presentations: %s", err))
	}
	return set
}

func LoadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a presets document.
func Load(r io.Reader) (Set, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode presentations: %w", err)
	}

	v := validator.New()
	if err := v.Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid presentations: %w", err)
	}

	set := make(Set, len(doc.Presets))
	for _, p := range doc.Presets {
		if _, dup := set[p.Name]; dup {
			return nil, fmt.Errorf("invalid presentations: duplicate name %q", p.Name)
		}
		if p.AutoOpen && len(p.ArrivalReveal) > 0 && len(p.ArrivalReveal) != len(p.Arrival)+1 {
			return nil, fmt.Errorf("invalid presentations: %s needs %d arrival_reveal values", p.Name, len(p.Arrival)+1)
		}
		set[p.Name] = p
	}
	return set, nil
}

func (s Set) Lookup(name string) (Preset, error) {
	if name == "" {
		name = DefaultName
	}
	p, ok := s[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return p, nil
}

// Reveal converts the preset for the state machine.
func (p Preset) Reveal() reveal.Config {
	return reveal.Config{
		AutoOpen:         p.AutoOpen,
		Arrival:          p.Arrival,
		ArrivalReveal:    p.ArrivalReveal,
		OpenDelay:        p.OpenDelay,
		CardDelay:        p.CardDelay,
		MessageDelay:     p.MessageDelay,
		NoIsEvadableOnly: p.NoIsEvadableOnly,
		Typewriter:       p.Typewriter,
		Evasion:          p.Evasion,
		Hint:             reveal.Hint{Text: p.Hint.Text, After: p.Hint.After, Before: p.Hint.Before},
		Teases:           p.Teases,
		TeaseFrom:        p.TeaseFrom,
	}
}
