package youtrack

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/issues-dataset/internal/records"
	"github.com/jonathan/issues-dataset/internal/retry"
	"github.com/jonathan/issues-dataset/internal/sink"
)

func newTestActivityDownloader(t *testing.T, url string, out sink.Sink, pageSize int) *ActivityDownloader {
	t.Helper()
	c, err := NewClient(url, nil)
	require.NoError(t, err)
	d := NewActivityDownloader(c, out, nil)
	d.PageSize = pageSize
	d.Now = fixedNow
	d.Retry.Delay = 0
	return d
}

func TestActivityDownloader_TotalsAcrossIssues(t *testing.T) {
	fake, server := newFakeYouTrack(t)
	fake.activities["A"] = 500
	fake.activities["B"] = 1050

	path := filepath.Join(t.TempDir(), "out.activities.json")
	out, err := sink.OpenFile(path, sink.CompressionNone)
	require.NoError(t, err)

	d := newTestActivityDownloader(t, server.URL, out, 1000)
	total, err := d.Download(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	require.NoError(t, out.Close())

	assert.Equal(t, 1550, total)
	assert.Equal(t, 3, fake.requestCount())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	perIssue := map[string]int{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		assert.Equal(t, records.ElementActivity, line[records.FieldElementType])
		perIssue[line[records.FieldIssueID].(string)]++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, map[string]int{"A": 500, "B": 1050}, perIssue)
}

func TestActivityDownloader_RecoversAfterThreeTransportFailures(t *testing.T) {
	fake, server := newFakeYouTrack(t)
	fake.activities["A"] = 5
	fake.flaky["A"] = 3

	mem := &sink.Memory{}
	total, err := newTestActivityDownloader(t, server.URL, mem, 10).Download(context.Background(), []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, 4, fake.requestCount())
}

func TestActivityDownloader_FourTransportFailuresAreFatal(t *testing.T) {
	fake, server := newFakeYouTrack(t)
	fake.activities["A"] = 5
	fake.activities["B"] = 5
	fake.flaky["A"] = 4

	mem := &sink.Memory{}
	_, err := newTestActivityDownloader(t, server.URL, mem, 10).Download(context.Background(), []string{"A", "B"})
	require.Error(t, err)

	var exhausted *retry.ExhaustedError
	assert.ErrorAs(t, err, &exhausted)
	var issueErr *IssueError
	require.ErrorAs(t, err, &issueErr)
	assert.Equal(t, "A", issueErr.IssueID)

	assert.Equal(t, 4, fake.requestCount(), "issue B must not be attempted")
	assert.Empty(t, mem.Records())
}

func TestActivityDownloader_ServerErrorNamesIssueWithoutRetry(t *testing.T) {
	fake, server := newFakeYouTrack(t)
	fake.activities["A"] = 2
	fake.rejected["B"] = true

	mem := &sink.Memory{}
	total, err := newTestActivityDownloader(t, server.URL, mem, 10).Download(context.Background(), []string{"A", "B"})
	require.Error(t, err)
	assert.Equal(t, 2, total)

	var issueErr *IssueError
	require.ErrorAs(t, err, &issueErr)
	assert.Equal(t, "B", issueErr.IssueID)
	assert.Contains(t, err.Error(), "for issue: B")

	var serverErr *ServerError
	assert.ErrorAs(t, err, &serverErr)
	assert.Equal(t, 2, fake.requestCount())
}

func TestActivityDownloader_CollectKeepsRecordsInMemory(t *testing.T) {
	fake, server := newFakeYouTrack(t)
	fake.activities["A"] = 3
	fake.activities["B"] = 1

	mem := &sink.Memory{}
	recs, err := newTestActivityDownloader(t, server.URL, mem, 2).Collect(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Empty(t, mem.Records(), "collect mode must not write to the sink")

	assert.Equal(t, "A", recs[0][records.FieldIssueID])
	assert.Equal(t, "A.2", recs[2]["id"])
	assert.Equal(t, "B", recs[3][records.FieldIssueID])
	assert.Equal(t, int64(1700000000000), recs[3][records.FieldActivityDownloadTime])
}

func TestActivityDownloader_NoIssues(t *testing.T) {
	fake, server := newFakeYouTrack(t)
	total, err := newTestActivityDownloader(t, server.URL, &sink.Memory{}, 10).Download(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, fake.requestCount())
}
