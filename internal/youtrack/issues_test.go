package youtrack

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/issues-dataset/internal/records"
	"github.com/jonathan/issues-dataset/internal/sink"
)

var fixedNow = func() time.Time { return time.UnixMilli(1700000000000) }

func newTestIssueDownloader(t *testing.T, url string, out sink.Sink, pageSize int) *IssueDownloader {
	t.Helper()
	c, err := NewClient(url, nil)
	require.NoError(t, err)
	d := NewIssueDownloader(c, out, nil)
	d.PageSize = pageSize
	d.Now = fixedNow
	return d
}

func TestIssueDownloader_DownloadsAllPages(t *testing.T) {
	fake, server := newFakeYouTrack(t)
	fake.issues["#IDEA created: a .. b"] = 25

	mem := &sink.Memory{}
	d := newTestIssueDownloader(t, server.URL, mem, 10)

	ids, err := d.Download(context.Background(), "#IDEA created: a .. b")
	require.NoError(t, err)
	require.Len(t, ids, 25)
	assert.Equal(t, "2-0", ids[0])
	assert.Equal(t, "2-24", ids[24])
	assert.Equal(t, 3, fake.requestCount())

	recs := mem.Records()
	require.Len(t, recs, 25)
	for _, r := range recs {
		assert.Equal(t, records.ElementIssue, r.ElementType())
		assert.Equal(t, int64(1700000000000), r[records.FieldIssueDownloadTime])
	}
}

func TestIssueDownloader_NoMatches(t *testing.T) {
	fake, server := newFakeYouTrack(t)
	fake.issues["empty"] = 0

	mem := &sink.Memory{}
	ids, err := newTestIssueDownloader(t, server.URL, mem, 10).Download(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, mem.Records())
	assert.Equal(t, 1, fake.requestCount())
}

func TestIssueDownloader_ServerErrorIsFatal(t *testing.T) {
	_, server := newFakeYouTrack(t)

	_, err := newTestIssueDownloader(t, server.URL, &sink.Memory{}, 10).Download(context.Background(), "unknown query")
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "invalid_query", serverErr.Message)
}

func TestIssueDownloader_TransportErrorNotRetried(t *testing.T) {
	fake, server := newFakeYouTrack(t)
	server.Close()

	_, err := newTestIssueDownloader(t, server.URL, &sink.Memory{}, 10).Download(context.Background(), "q")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, fake.requestCount())
}

type brokenSink struct{}

func (brokenSink) Write(context.Context, []records.Record) error { return errors.New("no space left") }
func (brokenSink) Close() error                                 { return nil }

func TestIssueDownloader_SinkErrorStops(t *testing.T) {
	fake, server := newFakeYouTrack(t)
	fake.issues["q"] = 30

	_, err := newTestIssueDownloader(t, server.URL, brokenSink{}, 10).Download(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no space left")
	assert.Equal(t, 1, fake.requestCount())
}
