package domain

import (
	"encoding/xml"
	"fmt"
)

// ChardevSourceType discriminates the character-device source variant.
type ChardevSourceType string

const (
	ChardevNull     ChardevSourceType = "null"
	ChardevVC       ChardevSourceType = "vc"
	ChardevPty      ChardevSourceType = "pty"
	ChardevDev      ChardevSourceType = "dev"
	ChardevFile     ChardevSourceType = "file"
	ChardevPipe     ChardevSourceType = "pipe"
	ChardevStdio    ChardevSourceType = "stdio"
	ChardevUDP      ChardevSourceType = "udp"
	ChardevTCP      ChardevSourceType = "tcp"
	ChardevUnix     ChardevSourceType = "unix"
	ChardevSpiceVMC ChardevSourceType = "spicevmc"
)

type ChardevSourceNull struct{}

type ChardevSourceVC struct{}

type ChardevSourcePty struct {
	// Path is the host PTY path; runtime-only, suppressed when formatting
	// an inactive definition.
	Path string `xml:"path,attr,omitempty"`
}

type ChardevSourceDev struct {
	Path string `xml:"path,attr"`
}

type ChardevSourceFile struct {
	Path   string `xml:"path,attr"`
	Append string `xml:"append,attr,omitempty"`
}

type ChardevSourcePipe struct {
	Path string `xml:"path,attr"`
}

type ChardevSourceStdio struct{}

type ChardevSourceUDP struct {
	BindHost       string
	BindService    string
	ConnectHost    string
	ConnectService string
}

type ChardevSourceTCP struct {
	Mode    string `xml:"mode,attr,omitempty"`
	Host    string `xml:"host,attr,omitempty"`
	Service string `xml:"service,attr,omitempty"`
	Telnet  string `xml:"telnet,attr,omitempty"`
}

type ChardevSourceUnix struct {
	Mode string `xml:"mode,attr,omitempty"`
	Path string `xml:"path,attr,omitempty"`
}

type ChardevSourceSpiceVMC struct{}

// ChardevSource is the variant over character-device backends. Exactly one
// arm is populated.
type ChardevSource struct {
	Null     *ChardevSourceNull     `xml:"-"`
	VC       *ChardevSourceVC       `xml:"-"`
	Pty      *ChardevSourcePty      `xml:"-"`
	Dev      *ChardevSourceDev      `xml:"-"`
	File     *ChardevSourceFile     `xml:"-"`
	Pipe     *ChardevSourcePipe     `xml:"-"`
	Stdio    *ChardevSourceStdio    `xml:"-"`
	UDP      *ChardevSourceUDP      `xml:"-"`
	TCP      *ChardevSourceTCP      `xml:"-"`
	Unix     *ChardevSourceUnix     `xml:"-"`
	SpiceVMC *ChardevSourceSpiceVMC `xml:"-"`

	// SecLabels are per-device label overrides parsed from <seclabel> children
	// of <source>; each must reference a relabelling top-level model.
	SecLabels []DeviceSecLabel `xml:"-"`
}

// Type reports which arm is populated.
func (s *ChardevSource) Type() ChardevSourceType {
	switch {
	case s == nil:
		return ""
	case s.Null != nil:
		return ChardevNull
	case s.VC != nil:
		return ChardevVC
	case s.Pty != nil:
		return ChardevPty
	case s.Dev != nil:
		return ChardevDev
	case s.File != nil:
		return ChardevFile
	case s.Pipe != nil:
		return ChardevPipe
	case s.Stdio != nil:
		return ChardevStdio
	case s.UDP != nil:
		return ChardevUDP
	case s.TCP != nil:
		return ChardevTCP
	case s.Unix != nil:
		return ChardevUnix
	case s.SpiceVMC != nil:
		return ChardevSpiceVMC
	}
	return ""
}

func newChardevSource(typ ChardevSourceType) (*ChardevSource, error) {
	s := &ChardevSource{}
	switch typ {
	case ChardevNull:
		s.Null = &ChardevSourceNull{}
	case ChardevVC:
		s.VC = &ChardevSourceVC{}
	case ChardevPty:
		s.Pty = &ChardevSourcePty{}
	case ChardevDev:
		s.Dev = &ChardevSourceDev{}
	case ChardevFile:
		s.File = &ChardevSourceFile{}
	case ChardevPipe:
		s.Pipe = &ChardevSourcePipe{}
	case ChardevStdio:
		s.Stdio = &ChardevSourceStdio{}
	case ChardevUDP:
		s.UDP = &ChardevSourceUDP{}
	case ChardevTCP:
		s.TCP = &ChardevSourceTCP{}
	case ChardevUnix:
		s.Unix = &ChardevSourceUnix{}
	case ChardevSpiceVMC:
		s.SpiceVMC = &ChardevSourceSpiceVMC{}
	default:
		return nil, fmt.Errorf("%w: unsupported character device type %q", ErrInvalidValue, string(typ))
	}
	return s, nil
}

type chardevSourceUDPFlat struct {
	Mode    string `xml:"mode,attr"`
	Host    string `xml:"host,attr,omitempty"`
	Service string `xml:"service,attr,omitempty"`
}

type chardevSourceSecLabels struct {
	SecLabels []DeviceSecLabel `xml:"seclabel"`
}

func (s *ChardevSource) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	encode := func(v any) error {
		return e.EncodeElement(v, start)
	}
	switch s.Type() {
	case ChardevNull, ChardevVC, ChardevStdio, ChardevSpiceVMC:
		return nil
	case ChardevPty:
		if s.Pty.Path == "" && len(s.SecLabels) == 0 {
			return nil
		}
		return encode(&struct {
			ChardevSourcePty
			chardevSourceSecLabels
		}{*s.Pty, chardevSourceSecLabels{s.SecLabels}})
	case ChardevDev:
		return encode(&struct {
			ChardevSourceDev
			chardevSourceSecLabels
		}{*s.Dev, chardevSourceSecLabels{s.SecLabels}})
	case ChardevFile:
		return encode(s.File)
	case ChardevPipe:
		return encode(s.Pipe)
	case ChardevUDP:
		bind := chardevSourceUDPFlat{Mode: "bind", Host: s.UDP.BindHost, Service: s.UDP.BindService}
		connect := chardevSourceUDPFlat{Mode: "connect", Host: s.UDP.ConnectHost, Service: s.UDP.ConnectService}
		if bind.Host != "" || bind.Service != "" {
			if err := encode(&bind); err != nil {
				return err
			}
		}
		if connect.Host != "" || connect.Service != "" {
			return encode(&connect)
		}
		return nil
	case ChardevTCP:
		return encode(s.TCP)
	case ChardevUnix:
		if s.Unix.Path == "" && s.Unix.Mode == "" {
			return nil
		}
		return encode(&struct {
			ChardevSourceUnix
			chardevSourceSecLabels
		}{*s.Unix, chardevSourceSecLabels{s.SecLabels}})
	}
	return nil
}

func (s *ChardevSource) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	switch s.Type() {
	case ChardevNull, ChardevVC, ChardevStdio, ChardevSpiceVMC:
		return d.Skip()
	case ChardevPty:
		return s.decodeWithSecLabels(d, start, s.Pty)
	case ChardevDev:
		return s.decodeWithSecLabels(d, start, s.Dev)
	case ChardevFile:
		return d.DecodeElement(s.File, &start)
	case ChardevPipe:
		return d.DecodeElement(s.Pipe, &start)
	case ChardevUDP:
		var flat chardevSourceUDPFlat
		if err := d.DecodeElement(&flat, &start); err != nil {
			return err
		}
		if flat.Mode == "connect" {
			s.UDP.ConnectHost = flat.Host
			s.UDP.ConnectService = flat.Service
		} else {
			s.UDP.BindHost = flat.Host
			s.UDP.BindService = flat.Service
		}
		return nil
	case ChardevTCP:
		return d.DecodeElement(s.TCP, &start)
	case ChardevUnix:
		return s.decodeWithSecLabels(d, start, s.Unix)
	}
	return d.Skip()
}

// decodeWithSecLabels decodes the arm's attributes and collects <seclabel>
// children into the shared override list.
func (s *ChardevSource) decodeWithSecLabels(d *xml.Decoder, start xml.StartElement, arm any) error {
	type armWrap struct {
		SecLabels []DeviceSecLabel `xml:"seclabel"`
	}
	switch a := arm.(type) {
	case *ChardevSourcePty:
		var w struct {
			ChardevSourcePty
			armWrap
		}
		if err := d.DecodeElement(&w, &start); err != nil {
			return err
		}
		*a = w.ChardevSourcePty
		s.SecLabels = w.SecLabels
	case *ChardevSourceDev:
		var w struct {
			ChardevSourceDev
			armWrap
		}
		if err := d.DecodeElement(&w, &start); err != nil {
			return err
		}
		*a = w.ChardevSourceDev
		s.SecLabels = w.SecLabels
	case *ChardevSourceUnix:
		var w struct {
			ChardevSourceUnix
			armWrap
		}
		if err := d.DecodeElement(&w, &start); err != nil {
			return err
		}
		*a = w.ChardevSourceUnix
		s.SecLabels = w.SecLabels
	}
	return nil
}

// Equal compares two sources structurally, ignoring runtime PTY paths when
// either side has none.
func (s *ChardevSource) Equal(o *ChardevSource) bool {
	if s.Type() != o.Type() {
		return false
	}
	switch s.Type() {
	case ChardevPty:
		return s.Pty.Path == o.Pty.Path || s.Pty.Path == "" || o.Pty.Path == ""
	case ChardevDev:
		return s.Dev.Path == o.Dev.Path
	case ChardevFile:
		return *s.File == *o.File
	case ChardevPipe:
		return s.Pipe.Path == o.Pipe.Path
	case ChardevUDP:
		return *s.UDP == *o.UDP
	case ChardevTCP:
		return *s.TCP == *o.TCP
	case ChardevUnix:
		return *s.Unix == *o.Unix
	}
	return true
}
