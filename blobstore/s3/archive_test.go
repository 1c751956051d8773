package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cmsketch"
)

func TestStore_ArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "sketches", "daily/")

	var object []byte
	mockClient.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Key == "daily/hits.cmsa" && aws.ToString(input.ContentType) == ContentType
	})).Run(func(args mock.Arguments) {
		input := args.Get(1).(*s3.PutObjectInput)
		object, _ = io.ReadAll(input.Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	s, err := cmsketch.Create(1<<10, cmsketch.DefaultMaxValue, cmsketch.WithSeed(11))
	require.NoError(t, err)
	defer s.Close()
	s.AddString("GET /", 70_000)
	s.IncString("GET /about")
	require.NoError(t, s.Export(ctx, store, "hits.cmsa", cmsketch.WithCompression(cmsketch.CompressionLZ4)))
	require.NotEmpty(t, object)

	mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
		return *input.Key == "daily/hits.cmsa"
	})).Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(object)))}, nil).Once()
	mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return *input.Key == "daily/hits.cmsa" && *input.Range == fmt.Sprintf("bytes=0-%d", len(object)-1)
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(object))}, nil).Once()

	r, err := cmsketch.Import(ctx, store, "hits.cmsa")
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, s.GetString("GET /"), r.GetString("GET /"))
	assert.Equal(t, uint64(1), r.GetString("GET /about"))
	assert.Equal(t, s.Seed(), r.Seed())
	mockClient.AssertExpectations(t)
}

func TestStore_ArchiveUploadFailure(t *testing.T) {
	ctx := context.Background()
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "sketches", "")

	mockClient.On("PutObject", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			_, _ = io.ReadAll(args.Get(1).(*s3.PutObjectInput).Body)
		}).
		Return(nil, assert.AnError).Once()

	s, err := cmsketch.Create(1<<4, 255)
	require.NoError(t, err)
	defer s.Close()

	err = s.Export(ctx, store, "broken.cmsa")
	assert.ErrorIs(t, err, cmsketch.ErrIO)
	mockClient.AssertExpectations(t)
}
