package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryContext(rawQuery string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/shipments?"+rawQuery, nil)
	return c
}

func TestParsePaginationDefaults(t *testing.T) {
	page := ParsePagination(queryContext(""))

	assert.Equal(t, int64(1), page.Page)
	assert.Equal(t, int64(20), page.PageSize)
}

func TestParsePaginationClamps(t *testing.T) {
	page := ParsePagination(queryContext("page=-3&pageSize=5000"))

	assert.Equal(t, int64(1), page.Page)
	assert.Equal(t, int64(100), page.PageSize)
}

func TestParseSortFallsBackOnBadOrder(t *testing.T) {
	sort := ParseSort(queryContext("sortBy=weekNumber&sortOrder=sideways"), "createdAt")

	assert.Equal(t, "weekNumber", sort.Field)
	assert.Equal(t, SortDesc, sort.Order)
}

func TestParseSortDefaultField(t *testing.T) {
	sort := ParseSort(queryContext("sortOrder=asc"), "createdAt")

	assert.Equal(t, "createdAt", sort.Field)
	assert.Equal(t, SortAsc, sort.Order)
}

func TestParseFilterMultiValues(t *testing.T) {
	c := queryContext("status=planned,in_transit&status=delayed&supplier=Savannah%20Fine%20Chemicals&warehouse=JHB-CENTRAL")

	filter, err := ParseFilter(c)

	require.NoError(t, err)
	assert.Equal(t, []string{"planned", "in_transit", "delayed"}, filter.Statuses)
	assert.Equal(t, []string{"Savannah Fine Chemicals"}, filter.Suppliers)
	assert.Equal(t, []string{"JHB-CENTRAL"}, filter.Warehouses)
	assert.False(t, filter.IncludeArchived)
}

func TestParseFilterWeekNumberPinsRange(t *testing.T) {
	filter, err := ParseFilter(queryContext("weekNumber=7"))

	require.NoError(t, err)
	require.NotNil(t, filter.WeekFrom)
	require.NotNil(t, filter.WeekTo)
	assert.Equal(t, 7, *filter.WeekFrom)
	assert.Equal(t, 7, *filter.WeekTo)
}

func TestParseFilterWeekNumberWinsOverRange(t *testing.T) {
	filter, err := ParseFilter(queryContext("weekNumber=7&weekFrom=1&weekTo=50"))

	require.NoError(t, err)
	assert.Equal(t, 7, *filter.WeekFrom)
	assert.Equal(t, 7, *filter.WeekTo)
}

func TestParseFilterWeekRange(t *testing.T) {
	filter, err := ParseFilter(queryContext("weekFrom=3&weekTo=9"))

	require.NoError(t, err)
	assert.Equal(t, 3, *filter.WeekFrom)
	assert.Equal(t, 9, *filter.WeekTo)
}

func TestParseFilterInvalidWeek(t *testing.T) {
	_, err := ParseFilter(queryContext("weekNumber=soon"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "weekNumber")
}

func TestParseFilterArrivalBounds(t *testing.T) {
	filter, err := ParseFilter(queryContext("arrivalFrom=2024-01-01T00:00:00Z&arrivalTo=2024-02-01T00:00:00Z"))

	require.NoError(t, err)
	require.NotNil(t, filter.ArrivalFrom)
	require.NotNil(t, filter.ArrivalTo)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), filter.ArrivalFrom.UTC())
	assert.True(t, filter.ArrivalTo.After(*filter.ArrivalFrom))
}

func TestParseFilterInvalidArrivalBound(t *testing.T) {
	_, err := ParseFilter(queryContext("arrivalTo=yesterday"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "RFC 3339")
}

func TestParseFilterArchivedAndSearch(t *testing.T) {
	filter, err := ParseFilter(queryContext("archived=true&search=%20citric%20"))

	require.NoError(t, err)
	assert.True(t, filter.IncludeArchived)
	assert.Equal(t, "citric", filter.Search)
}

func TestParseListRequest(t *testing.T) {
	c := queryContext("page=2&pageSize=10&sortBy=weekNumber&sortOrder=asc&status=planned")

	req, err := ParseListRequest(c, "createdAt")

	require.NoError(t, err)
	assert.Equal(t, int64(2), req.Pagination.Page)
	assert.Equal(t, int64(10), req.Pagination.PageSize)
	assert.Equal(t, SortAsc, req.Sort.Order)
	assert.Equal(t, []string{"planned"}, req.Filter.Statuses)
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse([]string{"a", "b"}, 2, 2, 5)

	assert.Equal(t, int64(3), resp.TotalPages)
	assert.True(t, resp.HasNext)
	assert.True(t, resp.HasPrev)
}

func TestNewPageResponseEmpty(t *testing.T) {
	resp := NewPageResponse([]int{}, 1, 20, 0)

	assert.Equal(t, int64(1), resp.TotalPages)
	assert.False(t, resp.HasNext)
	assert.False(t, resp.HasPrev)
}
