package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
)

// MockDocumentStore is a mock implementation of DocumentStore
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) UpsertDocument(ctx context.Context, doc *domain.Document) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentStore) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	args := m.Called(ctx, documentID, chunks)
	return args.Error(0)
}

// MockFileStore is a mock implementation of FileStore
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) CreateNoticeFile(ctx context.Context, file *domain.NoticeFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

// MockBlobStore is a mock implementation of BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) PutObject(ctx context.Context, key string, contentType string, data []byte) error {
	args := m.Called(ctx, key, contentType, data)
	return args.Error(0)
}

func TestIngestFile_MissingFields(t *testing.T) {
	svc := NewIngestService(new(MockFileStore), new(MockDocumentStore), nil)

	_, err := svc.IngestFile(context.Background(), UploadInput{FileName: "a.txt", Data: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)

	_, err = svc.IngestFile(context.Background(), UploadInput{NoticeID: "n1", Data: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)

	_, err = svc.IngestFile(context.Background(), UploadInput{NoticeID: "n1", FileName: "a.txt"})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
}

func TestIngestFile_TextFileIndexed(t *testing.T) {
	files := new(MockFileStore)
	docs := new(MockDocumentStore)
	blobs := new(MockBlobStore)

	var storedFile *domain.NoticeFile
	files.On("CreateNoticeFile", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		storedFile = args.Get(1).(*domain.NoticeFile)
	}).Return(nil)
	blobs.On("PutObject", mock.Anything, mock.Anything, "text/plain", mock.Anything).Return(nil)
	docs.On("UpsertDocument", mock.Anything, mock.MatchedBy(func(doc *domain.Document) bool {
		return doc.NoticeID == "n1" && doc.Status == domain.DocumentStatusReady
	})).Return("doc-1", nil)
	docs.On("ReplaceChunks", mock.Anything, "doc-1", mock.MatchedBy(func(chunks []domain.DocumentChunk) bool {
		return len(chunks) == 1 && chunks[0].ChunkIndex == 0 && chunks[0].Embedding == nil
	})).Return(nil)

	svc := NewIngestService(files, docs, blobs)
	result, err := svc.IngestFile(context.Background(), UploadInput{
		NoticeID: "n1",
		FileName: "edital.txt",
		MimeType: "text/plain",
		Data:     []byte("Prazo final em 30 de setembro de 2026."),
	})

	require.NoError(t, err)
	assert.Empty(t, result.Warning)
	require.NotNil(t, storedFile)
	assert.Equal(t, "n1", storedFile.NoticeID)
	assert.Equal(t, "edital.txt", storedFile.FileName)
	assert.Equal(t, "edital.txt", storedFile.DisplayName)
	assert.True(t, strings.HasPrefix(storedFile.StoragePath, "n1/"))
	assert.True(t, strings.HasSuffix(storedFile.StoragePath, ".txt"))
	docs.AssertExpectations(t)
}

func TestIngestFile_UnextractableTypeWarns(t *testing.T) {
	files := new(MockFileStore)
	docs := new(MockDocumentStore)

	files.On("CreateNoticeFile", mock.Anything, mock.Anything).Return(nil)

	svc := NewIngestService(files, docs, nil)
	result, err := svc.IngestFile(context.Background(), UploadInput{
		NoticeID: "n1",
		FileName: "logo.png",
		MimeType: "image/png",
		Data:     []byte{0x89, 0x50, 0x4e, 0x47},
	})

	require.NoError(t, err)
	assert.Equal(t, "arquivo logo.png sem texto extraivel", result.Warning)
	docs.AssertNotCalled(t, "UpsertDocument", mock.Anything, mock.Anything)
}

func TestIngestFile_PDFIndexed(t *testing.T) {
	files := new(MockFileStore)
	docs := new(MockDocumentStore)

	files.On("CreateNoticeFile", mock.Anything, mock.Anything).Return(nil)
	docs.On("UpsertDocument", mock.Anything, mock.MatchedBy(func(doc *domain.Document) bool {
		return strings.Contains(doc.ContentPreview, "Criterios de elegibilidade")
	})).Return("doc-1", nil)
	docs.On("ReplaceChunks", mock.Anything, "doc-1", mock.Anything).Return(nil)

	svc := NewIngestService(files, docs, nil)
	result, err := svc.IngestFile(context.Background(), UploadInput{
		NoticeID: "n1",
		FileName: "edital.pdf",
		MimeType: "application/pdf",
		Data:     pdfWithText("Criterios de elegibilidade do edital"),
	})

	require.NoError(t, err)
	assert.Empty(t, result.Warning)
	docs.AssertExpectations(t)
}

func TestIngestFile_CorruptPDFWarns(t *testing.T) {
	files := new(MockFileStore)
	docs := new(MockDocumentStore)

	files.On("CreateNoticeFile", mock.Anything, mock.Anything).Return(nil)

	svc := NewIngestService(files, docs, nil)
	result, err := svc.IngestFile(context.Background(), UploadInput{
		NoticeID: "n1",
		FileName: "edital.pdf",
		MimeType: "application/pdf",
		Data:     []byte("%PDF-1.7 binario"),
	})

	require.NoError(t, err)
	assert.Equal(t, "arquivo edital.pdf sem texto extraivel", result.Warning)
	docs.AssertNotCalled(t, "UpsertDocument", mock.Anything, mock.Anything)
}

func TestIngestFile_IndexFailureIsOnlyAWarning(t *testing.T) {
	files := new(MockFileStore)
	docs := new(MockDocumentStore)

	files.On("CreateNoticeFile", mock.Anything, mock.Anything).Return(nil)
	docs.On("UpsertDocument", mock.Anything, mock.Anything).Return("", errors.New("db down"))

	svc := NewIngestService(files, docs, nil)
	result, err := svc.IngestFile(context.Background(), UploadInput{
		NoticeID: "n1",
		FileName: "edital.txt",
		MimeType: "text/plain",
		Data:     []byte("texto valido"),
	})

	require.NoError(t, err)
	assert.Equal(t, "falha ao registrar documento para edital.txt", result.Warning)
}

func TestIngestFile_BlobFailureFailsUpload(t *testing.T) {
	files := new(MockFileStore)
	blobs := new(MockBlobStore)

	blobs.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("bucket gone"))

	svc := NewIngestService(files, new(MockDocumentStore), blobs)
	_, err := svc.IngestFile(context.Background(), UploadInput{
		NoticeID: "n1",
		FileName: "edital.txt",
		MimeType: "text/plain",
		Data:     []byte("texto"),
	})

	require.Error(t, err)
	files.AssertNotCalled(t, "CreateNoticeFile", mock.Anything, mock.Anything)
}

func TestIngestFile_DisplayNameOverride(t *testing.T) {
	files := new(MockFileStore)
	docs := new(MockDocumentStore)

	var storedFile *domain.NoticeFile
	files.On("CreateNoticeFile", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		storedFile = args.Get(1).(*domain.NoticeFile)
	}).Return(nil)
	docs.On("UpsertDocument", mock.Anything, mock.Anything).Return("doc-1", nil)
	docs.On("ReplaceChunks", mock.Anything, "doc-1", mock.Anything).Return(nil)

	svc := NewIngestService(files, docs, nil)
	_, err := svc.IngestFile(context.Background(), UploadInput{
		NoticeID:    "n1",
		FileName:    "anexo-ii-final-v3.txt",
		DisplayName: "  Anexo II  ",
		MimeType:    "text/plain",
		Data:        []byte("conteudo do anexo"),
	})

	require.NoError(t, err)
	require.NotNil(t, storedFile)
	assert.Equal(t, "Anexo II", storedFile.DisplayName)
}
