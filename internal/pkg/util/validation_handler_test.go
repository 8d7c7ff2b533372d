package util

import (
	"Signalforge/internal/api/dto"
	"Signalforge/internal/service"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDTO(t *testing.T) {
	ok := &dto.AccountSettingsDTO{DailyPostMin: 1, DailyPostMax: 3, AllowedHours: []int{9, 23}, ThreadRatio: 0.5}
	require.NoError(t, ValidateDTO(ok))

	badHour := &dto.AccountSettingsDTO{AllowedHours: []int{24}}
	err := ValidateDTO(badHour)
	require.ErrorIs(t, err, service.ErrParamInvalid)
	require.Contains(t, err.Error(), "AllowedHours")

	badRatio := &dto.AccountSettingsDTO{LinkPostRatio: 1.5}
	require.ErrorIs(t, ValidateDTO(badRatio), service.ErrParamInvalid)

	require.ErrorIs(t, ValidateDTO(&dto.CreateSourceDTO{URL: "not a url"}), service.ErrParamInvalid)
	require.NoError(t, ValidateDTO(&dto.CreateSourceDTO{URL: "https://example.com/feed.xml"}))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	require.Equal(t, uint64(42), id)

	for _, raw := range []string{"", "0", "-1", "abc"} {
		_, err = ParseID(raw)
		require.ErrorIs(t, err, service.ErrParamInvalid, raw)
	}
}
