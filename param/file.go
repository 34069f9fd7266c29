package param

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Kaijun101/mavros/errors"
)

// stampLayout is the timestamp format written into file headers
const stampLayout = "02.01.2006 15:04:05"

// File is a file-shaped snapshot of parameters in one of the supported
// on-disk dialects.
type File interface {
	// Load replaces the file's parameters with the ones parsed from r.
	Load(r io.Reader) error
	// Save renders the file's parameters to w.
	Save(w io.Writer) error
	// Parameters returns the parameter set in file order.
	Parameters() []Parameter
	// SetParameters replaces the parameter set.
	SetParameters(params []Parameter)
}

// Supported dialect names for NewFile
const (
	FormatMavProxy       = "mavproxy"
	FormatMissionPlanner = "missionplanner"
	FormatQGroundControl = "qgc"
)

// NewFile returns an empty File for the named dialect
func NewFile(format string) (File, error) {
	switch format {
	case FormatMavProxy:
		return &MavProxyFile{}, nil
	case FormatMissionPlanner:
		return &MissionPlannerFile{}, nil
	case FormatQGroundControl:
		return NewQGroundControlFile(), nil
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown format %q", format),
			"param", "NewFile", "select dialect")
	}
}

// parseColumns reads delimiter-separated rows and extracts (name, value)
// pairs. Comment rows (first field starting with '#') are skipped without
// validation. A row with the wrong field count fails the whole parse; no
// partial result survives.
func parseColumns(r io.Reader, delim rune, fieldCount, nameField, valueField int) ([]Parameter, error) {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.Comment = '#'
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // field count checked below so the error names the expected count

	var params []Parameter
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapInvalid(err, "param", "Load", "read row")
		}

		if len(record) != fieldCount {
			return nil, errors.WrapInvalid(
				fmt.Errorf("expected %d fields, got %d: %w",
					fieldCount, len(record), errors.ErrWrongFieldCount),
				"param", "Load", "validate row")
		}

		value, err := Infer(record[valueField])
		if err != nil {
			return nil, err
		}

		params = append(params, Parameter{
			Name:  strings.TrimSpace(record[nameField]),
			Value: value,
		})
	}

	return params, nil
}

// renderSimple writes the two-column dialects: one "#NOTE: <stamp>" comment
// row, then one (name, value) row per parameter, CRLF-terminated.
func renderSimple(w io.Writer, delim rune, stamp time.Time, params []Parameter) error {
	// The comment row is written raw: csv.Writer would quote it when the
	// delimiter is a space.
	if _, err := fmt.Fprintf(w, "#NOTE: %s\r\n", stamp.Format(stampLayout)); err != nil {
		return errors.Wrap(err, "param", "Save", "write header")
	}

	writer := csv.NewWriter(w)
	writer.Comma = delim
	writer.UseCRLF = true

	for _, p := range params {
		if err := writer.Write([]string{p.Name, p.Value.Text()}); err != nil {
			return errors.Wrap(err, "param", "Save", "write row")
		}
	}

	writer.Flush()
	return writer.Error()
}

// MavProxyFile reads and writes MavProxy param files: space-delimited
// (name, value) rows with CRLF line endings.
type MavProxyFile struct {
	Params []Parameter
	Stamp  time.Time
}

// Load implements File
func (f *MavProxyFile) Load(r io.Reader) error {
	params, err := parseColumns(r, ' ', 2, 0, 1)
	if err != nil {
		return err
	}
	f.Params = params
	return nil
}

// Save implements File
func (f *MavProxyFile) Save(w io.Writer) error {
	if f.Stamp.IsZero() {
		f.Stamp = time.Now()
	}
	return renderSimple(w, ' ', f.Stamp, f.Params)
}

// Parameters implements File
func (f *MavProxyFile) Parameters() []Parameter { return f.Params }

// SetParameters implements File
func (f *MavProxyFile) SetParameters(params []Parameter) { f.Params = params }

// MissionPlannerFile reads and writes MissionPlanner param files. The layout
// matches MavProxy except the delimiter is a comma.
type MissionPlannerFile struct {
	Params []Parameter
	Stamp  time.Time
}

// Load implements File
func (f *MissionPlannerFile) Load(r io.Reader) error {
	params, err := parseColumns(r, ',', 2, 0, 1)
	if err != nil {
		return err
	}
	f.Params = params
	return nil
}

// Save implements File
func (f *MissionPlannerFile) Save(w io.Writer) error {
	if f.Stamp.IsZero() {
		f.Stamp = time.Now()
	}
	return renderSimple(w, ',', f.Stamp, f.Params)
}

// Parameters implements File
func (f *MissionPlannerFile) Parameters() []Parameter { return f.Params }

// SetParameters implements File
func (f *MissionPlannerFile) SetParameters(params []Parameter) { f.Params = params }

// QGroundControlFile reads and writes QGroundControl param files:
// tab-delimited (system, component, name, value, type) rows with LF line
// endings and three leading comment rows on save. On load the system,
// component and type columns are ignored.
type QGroundControlFile struct {
	Params          []Parameter
	Stamp           time.Time
	TargetSystem    int
	TargetComponent int
}

// NewQGroundControlFile returns a file addressing vehicle (1, 1)
func NewQGroundControlFile() *QGroundControlFile {
	return &QGroundControlFile{TargetSystem: 1, TargetComponent: 1}
}

// Load implements File
func (f *QGroundControlFile) Load(r io.Reader) error {
	params, err := parseColumns(r, '\t', 5, 2, 3)
	if err != nil {
		return err
	}
	f.Params = params
	return nil
}

// Save implements File
func (f *QGroundControlFile) Save(w io.Writer) error {
	if f.Stamp.IsZero() {
		f.Stamp = time.Now()
	}

	sys, comp := f.TargetSystem, f.TargetComponent
	if sys == 0 {
		sys = 1
	}
	if comp == 0 {
		comp = 1
	}

	if _, err := fmt.Fprintf(w, "# NOTE: %s\n", f.Stamp.Format(stampLayout)); err != nil {
		return errors.Wrap(err, "param", "Save", "write note header")
	}
	if _, err := fmt.Fprintf(w, "# Onboard parameters saved by mavparam for (%d.%d)\n", sys, comp); err != nil {
		return errors.Wrap(err, "param", "Save", "write provenance header")
	}

	writer := csv.NewWriter(w)
	writer.Comma = '\t'

	if err := writer.Write([]string{"# MAV ID", "COMPONENT ID", "PARAM NAME", "VALUE", "(TYPE)"}); err != nil {
		return errors.Wrap(err, "param", "Save", "write column header")
	}

	for _, p := range f.Params {
		tag, err := TypeTag(p.Value)
		if err != nil {
			return err
		}
		row := []string{
			strconv.Itoa(sys),
			strconv.Itoa(comp),
			p.Name,
			p.Value.Text(),
			strconv.Itoa(tag),
		}
		if err := writer.Write(row); err != nil {
			return errors.Wrap(err, "param", "Save", "write row")
		}
	}

	writer.Flush()
	return writer.Error()
}

// Parameters implements File
func (f *QGroundControlFile) Parameters() []Parameter { return f.Params }

// SetParameters implements File
func (f *QGroundControlFile) SetParameters(params []Parameter) { f.Params = params }
