package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/summy/ai/core/llm"
	"github.com/hrygo/summy/ai/extract"
	"github.com/hrygo/summy/ai/summary"
	"github.com/hrygo/summy/internal/profile"
	"github.com/hrygo/summy/plugin/chat_apps"
	"github.com/hrygo/summy/plugin/chat_apps/channels"
	"github.com/hrygo/summy/store"
)

const (
	allowedUser  = int64(42)
	strangerUser = int64(7)
)

type memoryStore struct {
	cfg       *store.BotConfig
	last      string
	hasLast   bool
	updateErr error
	writeFail bool
	readErr   error
}

func (m *memoryStore) ReadOrInitializeBotConfig(context.Context) (*store.BotConfig, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.cfg == nil {
		m.cfg = store.DefaultBotConfig()
	}
	c := *m.cfg
	return &c, nil
}

func (m *memoryStore) UpdateBotConfig(_ context.Context, u *store.UpdateBotConfig) (bool, error) {
	if err := u.Validate(); err != nil {
		return false, err
	}
	if m.writeFail {
		return false, nil
	}
	m.cfg = &store.BotConfig{Language: u.Language, WordLimit: u.WordLimit, MessageCharLimit: u.MessageCharLimit}
	return true, nil
}

func (m *memoryStore) StoreLastArticle(_ context.Context, text string) error {
	m.last, m.hasLast = text, true
	return nil
}

func (m *memoryStore) GetLastArticle(context.Context) (string, error) {
	if !m.hasLast {
		return "", store.ErrNotFound
	}
	return m.last, nil
}

type fakeChannel struct {
	mu          sync.Mutex
	replies     []*chat_apps.OutgoingMessage
	media       []byte
	mediaMime   string
	downloadErr error
}

func (f *fakeChannel) SendMessage(_ context.Context, msg *chat_apps.OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, msg)
	return nil
}

func (f *fakeChannel) DownloadMedia(context.Context, string) ([]byte, string, error) {
	return f.media, f.mediaMime, f.downloadErr
}

func (f *fakeChannel) lastReply(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.replies)
	return f.replies[len(f.replies)-1].Content
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractFromURL(ctx context.Context, url string) (*extract.ExtractedContent, error) {
	args := m.Called(ctx, url)
	content, _ := args.Get(0).(*extract.ExtractedContent)
	return content, args.Error(1)
}

func (m *mockExtractor) ExtractFromPDF(ctx context.Context, data []byte) (*extract.ExtractedContent, error) {
	args := m.Called(ctx, data)
	content, _ := args.Get(0).(*extract.ExtractedContent)
	return content, args.Error(1)
}

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, content *extract.ExtractedContent, cfg *store.BotConfig) (string, error) {
	args := m.Called(ctx, content, cfg)
	return args.String(0), args.Error(1)
}

func (m *mockSummarizer) Respond(ctx context.Context, lastArticle, question string, cfg *store.BotConfig) (string, error) {
	args := m.Called(ctx, lastArticle, question, cfg)
	return args.String(0), args.Error(1)
}

type countingRecorder struct {
	commands    map[string]int
	failures    int
	extractions []string
}

func (c *countingRecorder) RecordCommand(command string, _ time.Duration, success bool) {
	if c.commands == nil {
		c.commands = map[string]int{}
	}
	c.commands[command]++
	if !success {
		c.failures++
	}
}

func (c *countingRecorder) RecordExtraction(source, kind string, _ time.Duration, _ bool) {
	c.extractions = append(c.extractions, source+":"+kind)
}

type harness struct {
	bot        *Bot
	store      *memoryStore
	channel    *fakeChannel
	extractor  *mockExtractor
	summarizer *mockSummarizer
	recorder   *countingRecorder
	shutdowns  int
}

func newHarness() *harness {
	h := &harness{
		store:      &memoryStore{},
		channel:    &fakeChannel{},
		extractor:  &mockExtractor{},
		summarizer: &mockSummarizer{},
		recorder:   &countingRecorder{},
	}
	h.bot = New(Config{
		Profile:    &profile.Profile{AllowedUsers: []int64{allowedUser}},
		Store:      h.store,
		Extractor:  h.extractor,
		Summarizer: h.summarizer,
		Channel:    h.channel,
		Recorder:   h.recorder,
		ParseMode:  "HTML",
		Shutdown:   func() { h.shutdowns++ },
	})
	return h
}

func command(user int64, name, args string) *chat_apps.IncomingMessage {
	return &chat_apps.IncomingMessage{
		Platform:       chat_apps.PlatformTelegram,
		UserID:         user,
		PlatformChatID: "100",
		Type:           chat_apps.MessageTypeText,
		Content:        "/" + name + " " + args,
		Command:        name,
		CommandArgs:    args,
	}
}

func TestHandle_StartAndHelpAreOpen(t *testing.T) {
	h := newHarness()

	h.bot.Handle(context.Background(), command(strangerUser, "start", ""))
	assert.Equal(t, msgWelcome, h.channel.lastReply(t))

	h.bot.Handle(context.Background(), command(strangerUser, "help", ""))
	assert.Contains(t, h.channel.lastReply(t), "/summ <url>")
	assert.Empty(t, h.channel.replies[0].ParseMode)
	assert.Empty(t, h.channel.replies[1].ParseMode)
	assert.Equal(t, "100", h.channel.replies[0].PlatformChatID)
}

func TestHandle_OnlySummariesUseParseMode(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	for _, msg := range []*chat_apps.IncomingMessage{
		command(allowedUser, "help", ""),
		command(allowedUser, "summ", ""),
		command(allowedUser, "resp", ""),
		command(allowedUser, "set", "xx"),
		command(allowedUser, "set", "eng 900"),
		command(strangerUser, "get", ""),
	} {
		h.bot.Handle(ctx, msg)
	}

	content := &extract.ExtractedContent{Text: "article text", Kind: extract.SourceArticleBody}
	h.extractor.On("ExtractFromURL", mock.Anything, "https://example.com/a").Return(content, nil).Once()
	h.summarizer.On("Summarize", mock.Anything, content, mock.Anything).Return("- key point", nil).Once()
	h.summarizer.On("Respond", mock.Anything, "article text", "why?", mock.Anything).Return("because", nil).Once()
	h.bot.Handle(ctx, command(allowedUser, "summ", "https://example.com/a"))
	h.bot.Handle(ctx, command(allowedUser, "resp", "why?"))

	require.Len(t, h.channel.replies, 8)
	for i, reply := range h.channel.replies[:6] {
		assert.Empty(t, reply.ParseMode, "reply %d: %q", i, reply.Content)
	}
	assert.Equal(t, "HTML", h.channel.replies[6].ParseMode)
	assert.Equal(t, "HTML", h.channel.replies[7].ParseMode)

	for _, reply := range h.channel.replies {
		if reply.ParseMode == "" {
			continue
		}
		assert.NotContains(t, reply.Content, "<")
		assert.NotContains(t, reply.Content, ">")
		assert.NotContains(t, reply.Content, "&")
	}
}

func TestHandle_Unauthorized(t *testing.T) {
	for _, name := range []string{"set", "get", "summ", "resp", "shut"} {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			h.bot.Handle(context.Background(), command(strangerUser, name, "eng 100"))
			assert.Equal(t, msgUnauthorized, h.channel.lastReply(t))
			assert.Zero(t, h.shutdowns)
			h.extractor.AssertNotCalled(t, "ExtractFromURL", mock.Anything, mock.Anything)
		})
	}
}

func TestHandle_SetAndGet(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.bot.Handle(ctx, command(allowedUser, "get", ""))
	assert.Equal(t, "language: eng\nsummary words limit: 300\ntelegram_msg_limit: 4096\n", h.channel.lastReply(t))

	h.bot.Handle(ctx, command(allowedUser, "set", "heb 150 2000"))
	assert.Equal(t, msgSetOK, h.channel.lastReply(t))

	h.bot.Handle(ctx, command(allowedUser, "get", ""))
	assert.Equal(t, "language: heb\nsummary words limit: 150\ntelegram_msg_limit: 2000\n", h.channel.lastReply(t))

	h.bot.Handle(ctx, command(allowedUser, "set", "eng 100 lots"))
	assert.Equal(t, msgSetOK, h.channel.lastReply(t))
	assert.Equal(t, 4096, h.store.cfg.MessageCharLimit)
}

func TestHandle_SetRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args string
		want string
	}{
		{"no args", "", msgSetUsage},
		{"one arg", "eng", msgSetUsage},
		{"too many", "eng 1 2 3", msgSetUsage},
		{"bad language", "fra 100", msgSetUsage},
		{"negative words", "eng -5", msgSetUsage},
		{"words not numeric", "eng many", msgSetUsage},
		{"words over limit", "eng 801", "Invalid configuration: invalid word_limit 801: must be between 0 and 800."},
		{"chars over limit", "eng 100 5000", "Invalid configuration: invalid message_char_limit 5000: must be between 1 and 4096."},
		{"zero chars", "eng 300 0", "Invalid configuration: invalid message_char_limit 0: must be between 1 and 4096."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.bot.Handle(context.Background(), command(allowedUser, "set", tt.args))
			assert.Equal(t, tt.want, h.channel.lastReply(t))
			assert.Nil(t, h.store.cfg)
		})
	}
}

func TestHandle_SetStorageFailure(t *testing.T) {
	h := newHarness()
	h.store.writeFail = true

	h.bot.Handle(context.Background(), command(allowedUser, "set", "eng 100"))
	assert.Equal(t, msgSetFailed, h.channel.lastReply(t))
}

func TestHandle_GetStorageFailure(t *testing.T) {
	h := newHarness()
	h.store.readErr = &store.StorageError{Op: "read bot config", Err: errors.New("disk gone")}

	h.bot.Handle(context.Background(), command(allowedUser, "get", ""))
	assert.Equal(t, msgGetFailed, h.channel.lastReply(t))
}

func TestHandle_SummarizeURL(t *testing.T) {
	h := newHarness()
	content := &extract.ExtractedContent{Text: "article text", Kind: extract.SourceArticleBody}
	h.extractor.On("ExtractFromURL", mock.Anything, "https://example.com/a").Return(content, nil).Once()
	h.summarizer.On("Summarize", mock.Anything, content, store.DefaultBotConfig()).Return("- short summary", nil).Once()

	h.bot.Handle(context.Background(), command(allowedUser, "summ", "https://example.com/a"))

	assert.Equal(t, "- short summary", h.channel.lastReply(t))
	assert.Equal(t, "article text", h.store.last)
	assert.Equal(t, []string{"url:article_body"}, h.recorder.extractions)
	assert.Equal(t, 1, h.recorder.commands["summ"])
	assert.Zero(t, h.recorder.failures)
	h.extractor.AssertExpectations(t)
	h.summarizer.AssertExpectations(t)
}

func TestHandle_SummarizeUsageAndPDFHint(t *testing.T) {
	h := newHarness()

	h.bot.Handle(context.Background(), command(allowedUser, "summ", ""))
	assert.Equal(t, msgSummUsage, h.channel.lastReply(t))

	h.bot.Handle(context.Background(), command(allowedUser, "summ", "PDF"))
	assert.Equal(t, msgUploadPDF, h.channel.lastReply(t))
}

func TestHandle_SummarizeFailures(t *testing.T) {
	t.Run("extraction", func(t *testing.T) {
		h := newHarness()
		h.extractor.On("ExtractFromURL", mock.Anything, "https://bad.example").
			Return(nil, &extract.ExtractionError{Source: "https://bad.example", Err: errors.New("timeout")})

		h.bot.Handle(context.Background(), command(allowedUser, "summ", "https://bad.example"))

		assert.Equal(t, msgExtractFailed, h.channel.lastReply(t))
		assert.False(t, h.store.hasLast)
		assert.Equal(t, []string{"url:none"}, h.recorder.extractions)
		assert.Equal(t, 1, h.recorder.failures)
	})

	t.Run("completion", func(t *testing.T) {
		h := newHarness()
		content := &extract.ExtractedContent{Text: "x", Kind: extract.SourceFullPage}
		h.extractor.On("ExtractFromURL", mock.Anything, mock.Anything).Return(content, nil)
		providerErr := &llm.ProviderError{Provider: "openai", Model: "m", StatusCode: 500, Err: errors.New("boom")}
		h.summarizer.On("Summarize", mock.Anything, content, mock.Anything).
			Return("", &summary.SummarizationError{Op: "summarize", Err: providerErr})

		h.bot.Handle(context.Background(), command(allowedUser, "summ", "https://example.com"))

		assert.Equal(t, msgSummaryFailed, h.channel.lastReply(t))
		assert.False(t, h.store.hasLast)
	})
}

func TestHandle_Respond(t *testing.T) {
	h := newHarness()

	h.bot.Handle(context.Background(), command(allowedUser, "resp", "what next?"))
	assert.Equal(t, msgNoLastArticle, h.channel.lastReply(t))

	h.bot.Handle(context.Background(), command(allowedUser, "resp", "  "))
	assert.Equal(t, msgRespUsage, h.channel.lastReply(t))

	h.store.last, h.store.hasLast = "stored article", true
	h.summarizer.On("Respond", mock.Anything, "stored article", "what next?", mock.Anything).Return("answer", nil).Once()

	h.bot.Handle(context.Background(), command(allowedUser, "resp", "what   next?"))
	assert.Equal(t, "answer", h.channel.lastReply(t))
}

func TestHandle_PDFUpload(t *testing.T) {
	h := newHarness()
	h.channel.media = []byte("%PDF-1.4")
	h.channel.mediaMime = "application/pdf"
	content := &extract.ExtractedContent{Text: "pdf text", Kind: extract.SourcePDFDocument}
	h.extractor.On("ExtractFromPDF", mock.Anything, []byte("%PDF-1.4")).Return(content, nil).Once()
	h.summarizer.On("Summarize", mock.Anything, content, mock.Anything).Return("pdf summary", nil).Once()

	h.bot.Handle(context.Background(), &chat_apps.IncomingMessage{
		UserID:         allowedUser,
		PlatformChatID: "100",
		Type:           chat_apps.MessageTypeDocument,
		FileID:         "F1",
		FileName:       "paper.pdf",
		MimeType:       "application/pdf",
	})

	assert.Equal(t, "pdf summary", h.channel.lastReply(t))
	assert.Equal(t, "pdf text", h.store.last)
	assert.Equal(t, []string{"pdf:pdf_document"}, h.recorder.extractions)
}

func TestHandle_NonPDFInput(t *testing.T) {
	h := newHarness()

	h.bot.Handle(context.Background(), &chat_apps.IncomingMessage{
		UserID:   allowedUser,
		Type:     chat_apps.MessageTypeDocument,
		FileID:   "F2",
		MimeType: "image/png",
	})
	assert.Equal(t, msgInvalidPDF, h.channel.lastReply(t))

	h.bot.Handle(context.Background(), &chat_apps.IncomingMessage{
		UserID:  allowedUser,
		Type:    chat_apps.MessageTypeText,
		Content: "hello",
	})
	assert.Equal(t, msgInvalidPDF, h.channel.lastReply(t))

	h.bot.Handle(context.Background(), &chat_apps.IncomingMessage{
		UserID:  strangerUser,
		Type:    chat_apps.MessageTypeText,
		Content: "hello",
	})
	assert.Equal(t, msgUnauthorized, h.channel.lastReply(t))
}

func TestHandle_PDFDownloadTooLarge(t *testing.T) {
	h := newHarness()
	h.channel.downloadErr = channels.ErrMediaTooLarge.Wrap(errors.New("52428800 bytes"))

	h.bot.Handle(context.Background(), &chat_apps.IncomingMessage{
		UserID:   allowedUser,
		Type:     chat_apps.MessageTypeDocument,
		FileID:   "F3",
		MimeType: "application/pdf",
	})
	assert.Equal(t, msgFileTooLarge, h.channel.lastReply(t))
	h.extractor.AssertNotCalled(t, "ExtractFromPDF", mock.Anything, mock.Anything)
}

func TestHandle_Shutdown(t *testing.T) {
	h := newHarness()

	h.bot.Handle(context.Background(), command(allowedUser, "shut", ""))
	assert.Equal(t, msgShutdown, h.channel.lastReply(t))
	assert.Equal(t, 1, h.shutdowns)
}

func TestHandle_RecoversFromPanic(t *testing.T) {
	h := newHarness()
	h.extractor.On("ExtractFromURL", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("renderer exploded")
	})

	assert.NotPanics(t, func() {
		h.bot.Handle(context.Background(), command(allowedUser, "summ", "https://example.com"))
	})
	assert.Equal(t, msgInternalFailure, h.channel.lastReply(t))
	assert.Equal(t, 1, h.recorder.failures)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, msgStorageFailed, userMessage(&store.StorageError{Op: "x", Err: errors.New("y")}))
	assert.Equal(t, msgDownloadFailed, userMessage(channels.ErrMediaDownloadFailed.Wrap(errors.New("eof"))))
	assert.Equal(t, msgInternalFailure, userMessage(errors.New("other")))
}
