package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mapleads/internal/model"
)

func rec(title, address, phone string) model.BusinessRecord {
	return model.BusinessRecord{Title: title, Address: address, Phone: phone}
}

func TestRecordsKeepsFirstOccurrence(t *testing.T) {
	in := []model.BusinessRecord{
		rec("Smile Dental", "12 Hill Road", "111"),
		rec("Smile Dental", "12 Hill Road", "222"),
		rec("City Dental", "4 Juhu Lane", "333"),
	}

	out := Records(in)

	assert.Len(t, out, 2)
	assert.Equal(t, "111", out[0].Phone, "first occurrence survives")
	assert.Equal(t, "City Dental", out[1].Title)
}

func TestRecordsPreservesOrder(t *testing.T) {
	in := []model.BusinessRecord{
		rec("C", "3", ""),
		rec("A", "1", ""),
		rec("B", "2", ""),
		rec("A", "1", ""),
	}

	out := Records(in)

	titles := make([]string, len(out))
	for i, r := range out {
		titles[i] = r.Title
	}
	assert.Equal(t, []string{"C", "A", "B"}, titles)
}

func TestRecordsExactKeyIsStrict(t *testing.T) {
	// Differently formatted addresses are distinct businesses under the
	// exact-match key.
	in := []model.BusinessRecord{
		rec("Smile Dental", "12 Hill Road", ""),
		rec("Smile Dental", "12, Hill Road", ""),
	}
	assert.Len(t, Records(in), 2)
}

func TestRecordsIdempotent(t *testing.T) {
	in := []model.BusinessRecord{
		rec("A", "1", ""),
		rec("A", "1", ""),
		rec("B", "2", ""),
		rec("A", "2", ""),
	}

	once := Records(in)
	twice := Records(once)
	assert.Equal(t, once, twice)
}

func TestRecordsEmpty(t *testing.T) {
	assert.Empty(t, Records(nil))
}
