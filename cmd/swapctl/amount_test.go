package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	cases := []struct {
		raw      string
		decimals int
		want     string
		wantErr  bool
	}{
		{raw: "100", decimals: 0, want: "100"},
		{raw: "1.25", decimals: 2, want: "125"},
		{raw: "0.000000000000000001", decimals: 18, want: "1"},
		{raw: "2", decimals: 6, want: "2000000"},
		{raw: "", decimals: 6, want: ""},
		{raw: "1.001", decimals: 2, wantErr: true},
		{raw: "-1", decimals: 0, wantErr: true},
		{raw: "ten", decimals: 0, wantErr: true},
	}
	for _, tc := range cases {
		got, err := toBaseUnits(tc.raw, tc.decimals)
		if tc.wantErr {
			require.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		require.Equal(t, tc.want, got, tc.raw)
	}
}

func TestFromBaseUnits(t *testing.T) {
	got, err := fromBaseUnits("12345", 2)
	require.NoError(t, err)
	require.Equal(t, "123.45", got)

	_, err = fromBaseUnits("x", 2)
	require.Error(t, err)
}

func TestCounterAmountFloors(t *testing.T) {
	got, err := counterAmount("3", "50", "100")
	require.NoError(t, err)
	require.Equal(t, "1", got)

	_, err = counterAmount("3", "50", "0")
	require.Error(t, err)
}
