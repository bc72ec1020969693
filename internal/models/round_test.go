package models

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRecord_Round(t *testing.T) {
	tests := []struct {
		name   string
		record RoundRecord
		want   int
		ok     bool
	}{
		{"int", RoundRecord{KeyRound: 3}, 3, true},
		{"int8 from msgpack", RoundRecord{KeyRound: int8(4)}, 4, true},
		{"int64", RoundRecord{KeyRound: int64(5)}, 5, true},
		{"uint64", RoundRecord{KeyRound: uint64(6)}, 6, true},
		{"integral float from json", RoundRecord{KeyRound: 7.0}, 7, true},
		{"fractional float", RoundRecord{KeyRound: 7.5}, 0, false},
		{"string", RoundRecord{KeyRound: "8"}, 0, false},
		{"missing", RoundRecord{KeyGProtosStd: 0.1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.record.Round()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundRecord_Keys(t *testing.T) {
	r := RoundRecord{
		KeyGlobalTestAccuracy: 0.9,
		KeyRound:              1,
		"client_2_acc":        0.5,
		KeyGProtosStd:         0.02,
	}
	assert.Equal(t, []string{"round", "client_2_acc", "g_protos_std", "global_test_accuracy"}, r.Keys())
	assert.True(t, r.Complete())
	assert.False(t, NewRoundRecord(2).Complete())
}

func TestRoundRecord_Clone(t *testing.T) {
	r := NewRoundRecord(1)
	c := r.Clone()
	c[KeyGProtosStd] = 0.3
	_, ok := r[KeyGProtosStd]
	assert.False(t, ok, "clone must not share storage")
}

func TestObservedKeys(t *testing.T) {
	records := []RoundRecord{
		{KeyRound: 1, KeyGlobalTestAccuracy: 0.5},
		{KeyRound: 2, KeyModelVarianceMean: 0.1, "client_0_acc": 0.4},
	}
	assert.Equal(t,
		[]string{"round", "client_0_acc", "global_test_accuracy", "model_variance_mean"},
		ObservedKeys(records))
	assert.Empty(t, ObservedKeys(nil))
}

func TestConfigValue(t *testing.T) {
	assert.Equal(t, "N/A", NotAvailable.String())
	assert.Equal(t, "0.01", Available(0.01).String())
	assert.Equal(t, "resnet18", Available("resnet18").String())

	literal := Available("N/A")
	assert.True(t, literal.Available, "a literal N/A string is still a found value")
	assert.NotEqual(t, NotAvailable, literal)

	summary := ConfigSummary{"server.lr": Available(0.01), "server.missing": NotAvailable}
	data, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.JSONEq(t, `{"server.lr":0.01,"server.missing":"N/A"}`, string(data))
	assert.Equal(t, []string{"server.lr", "server.missing"}, summary.Keys())
}

func TestErrorsUnwrap(t *testing.T) {
	var err error = &FileReadError{Path: "x.log", Err: fs.ErrNotExist}
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "x.log")

	err = &WriteError{Path: "out.csv", Err: fs.ErrPermission}
	assert.True(t, errors.Is(err, fs.ErrPermission))

	err = &InputFormatError{Field: "start time", Value: "yesterday", Want: "YYYY-MM-DD-HH-MM"}
	assert.Contains(t, err.Error(), "YYYY-MM-DD-HH-MM")
}
