package param

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaijun101/mavros/errors"
)

func testParams() []Parameter {
	return []Parameter{
		{Name: "BATT_CAPACITY", Value: RealVal(5200.0)},
		{Name: "RTL_ALT", Value: IntVal(1500)},
		{Name: "WPNAV_SPEED", Value: RealVal(12.5)},
	}
}

func TestNewFile(t *testing.T) {
	for _, format := range []string{FormatMavProxy, FormatMissionPlanner, FormatQGroundControl} {
		f, err := NewFile(format)
		require.NoError(t, err, format)
		assert.NotNil(t, f)
	}

	_, err := NewFile("paramfile2000")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMavProxyFile(t *testing.T) {
	t.Run("save and load round-trip", func(t *testing.T) {
		f := &MavProxyFile{Params: testParams(), Stamp: time.Date(2021, 3, 12, 8, 30, 0, 0, time.UTC)}

		var buf bytes.Buffer
		require.NoError(t, f.Save(&buf))

		out := buf.String()
		assert.True(t, strings.HasPrefix(out, "#NOTE: 12.03.2021 08:30:00\r\n"))
		assert.Contains(t, out, "RTL_ALT 1500\r\n")
		assert.Contains(t, out, "WPNAV_SPEED 12.5\r\n")

		var loaded MavProxyFile
		require.NoError(t, loaded.Load(&buf))
		assert.Equal(t, testParams(), loaded.Params)
	})

	t.Run("comments interleave with data", func(t *testing.T) {
		input := "#NOTE: 01.01.2020 00:00:00\r\n" +
			"RTL_ALT 1500\r\n" +
			"# mid-file remark\r\n" +
			"WPNAV_SPEED 12.5\r\n"

		var f MavProxyFile
		require.NoError(t, f.Load(strings.NewReader(input)))
		require.Len(t, f.Params, 2)
		assert.Equal(t, "RTL_ALT", f.Params[0].Name)
		assert.Equal(t, "WPNAV_SPEED", f.Params[1].Name)
	})

	t.Run("wrong field count fails the whole parse", func(t *testing.T) {
		input := "RTL_ALT 1500\r\n" +
			"BROKEN 1 extra\r\n"

		f := MavProxyFile{Params: testParams()}
		err := f.Load(strings.NewReader(input))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrWrongFieldCount)
		assert.Contains(t, err.Error(), "expected 2 fields")
		assert.Equal(t, testParams(), f.Params, "a failed load must not touch the parameter set")
	})

	t.Run("bad value fails the whole parse", func(t *testing.T) {
		input := "RTL_ALT banana\r\n"

		var f MavProxyFile
		err := f.Load(strings.NewReader(input))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrBadParamValue)
	})
}

func TestMissionPlannerFile(t *testing.T) {
	t.Run("save and load round-trip", func(t *testing.T) {
		f := &MissionPlannerFile{Params: testParams(), Stamp: time.Date(2021, 3, 12, 8, 30, 0, 0, time.UTC)}

		var buf bytes.Buffer
		require.NoError(t, f.Save(&buf))

		out := buf.String()
		assert.True(t, strings.HasPrefix(out, "#NOTE: 12.03.2021 08:30:00\r\n"))
		assert.Contains(t, out, "RTL_ALT,1500\r\n")
		assert.Contains(t, out, "BATT_CAPACITY,5200.0\r\n")

		var loaded MissionPlannerFile
		require.NoError(t, loaded.Load(&buf))
		assert.Equal(t, testParams(), loaded.Params)
	})

	t.Run("leading space after comma tolerated", func(t *testing.T) {
		input := "RTL_ALT, 1500\r\n"

		var f MissionPlannerFile
		require.NoError(t, f.Load(strings.NewReader(input)))
		require.Len(t, f.Params, 1)
		assert.Equal(t, IntVal(1500), f.Params[0].Value)
	})

	t.Run("wrong field count fails", func(t *testing.T) {
		var f MissionPlannerFile
		err := f.Load(strings.NewReader("A,1,2\r\n"))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrWrongFieldCount)
	})
}

func TestQGroundControlFile(t *testing.T) {
	t.Run("save emits headers and tagged rows", func(t *testing.T) {
		f := NewQGroundControlFile()
		f.Params = testParams()
		f.Stamp = time.Date(2021, 3, 12, 8, 30, 0, 0, time.UTC)

		var buf bytes.Buffer
		require.NoError(t, f.Save(&buf))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 6)
		assert.Equal(t, "# NOTE: 12.03.2021 08:30:00", lines[0])
		assert.Equal(t, "# Onboard parameters saved by mavparam for (1.1)", lines[1])
		assert.Equal(t, "# MAV ID\tCOMPONENT ID\tPARAM NAME\tVALUE\t(TYPE)", lines[2])
		assert.Equal(t, "1\t1\tBATT_CAPACITY\t5200.0\t9", lines[3])
		assert.Equal(t, "1\t1\tRTL_ALT\t1500\t6", lines[4])
		assert.Equal(t, "1\t1\tWPNAV_SPEED\t12.5\t9", lines[5])
	})

	t.Run("zero target defaults to (1.1)", func(t *testing.T) {
		f := &QGroundControlFile{Params: testParams(), Stamp: time.Unix(0, 0)}

		var buf bytes.Buffer
		require.NoError(t, f.Save(&buf))
		assert.Contains(t, buf.String(), "for (1.1)")
	})

	t.Run("explicit target is kept", func(t *testing.T) {
		f := &QGroundControlFile{
			Params:          testParams()[:1],
			Stamp:           time.Unix(0, 0),
			TargetSystem:    2,
			TargetComponent: 3,
		}

		var buf bytes.Buffer
		require.NoError(t, f.Save(&buf))
		assert.Contains(t, buf.String(), "for (2.3)")
		assert.Contains(t, buf.String(), "2\t3\tBATT_CAPACITY\t5200.0\t9\n")
	})

	t.Run("load skips headers and ignores addressing columns", func(t *testing.T) {
		input := "# NOTE: 12.03.2021 08:30:00\n" +
			"# Onboard parameters saved by mavparam for (1.1)\n" +
			"# MAV ID\tCOMPONENT ID\tPARAM NAME\tVALUE\t(TYPE)\n" +
			"1\t1\tFOO\t3\t6\n" +
			"7\t9\tBAR\t2.5\t9\n"

		var f QGroundControlFile
		require.NoError(t, f.Load(strings.NewReader(input)))
		require.Len(t, f.Params, 2)
		assert.Equal(t, Parameter{Name: "FOO", Value: IntVal(3)}, f.Params[0])
		assert.Equal(t, Parameter{Name: "BAR", Value: RealVal(2.5)}, f.Params[1])
	})

	t.Run("save and load round-trip", func(t *testing.T) {
		f := NewQGroundControlFile()
		f.Params = testParams()
		f.Stamp = time.Unix(0, 0)

		var buf bytes.Buffer
		require.NoError(t, f.Save(&buf))

		var loaded QGroundControlFile
		require.NoError(t, loaded.Load(&buf))
		assert.Equal(t, testParams(), loaded.Params)
	})

	t.Run("wrong field count fails", func(t *testing.T) {
		var f QGroundControlFile
		err := f.Load(strings.NewReader("1\t1\tFOO\t3\n"))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrWrongFieldCount)
		assert.Contains(t, err.Error(), "expected 5 fields")
	})

	t.Run("string value cannot be saved", func(t *testing.T) {
		f := NewQGroundControlFile()
		f.Params = []Parameter{{Name: "SYSID", Value: StringVal("px4")}}
		f.Stamp = time.Unix(0, 0)

		var buf bytes.Buffer
		err := f.Save(&buf)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrUnsupportedType)
	})
}
