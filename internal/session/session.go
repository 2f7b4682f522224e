package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vbonduro/skintell/internal/advisor"
	"github.com/vbonduro/skintell/internal/capture"
	"github.com/vbonduro/skintell/internal/conversation"
	"github.com/vbonduro/skintell/internal/domain"
	"github.com/vbonduro/skintell/internal/navigator"
)

var (
	ErrEmptyMessage         = errors.New("message is empty")
	ErrBusy                 = errors.New("a request is already in progress")
	ErrInvalidQuestionnaire = errors.New("age range and skin type are required")
	ErrAnalysisFailed       = errors.New("analysis failed")
	ErrCameraNotOpen        = errors.New("camera is not open")
	ErrClosed               = errors.New("session closed")
)

// AnalysisEcho is the user-side caption placed above a scan photo in chat.
const AnalysisEcho = "Here's my analysis of your skin:"

// Advisor answers chat prompts.
type Advisor interface {
	Advise(ctx context.Context, p advisor.Prompt) (string, error)
}

// Analyzer turns a scan photo into an analysis result.
type Analyzer interface {
	Analyze(ctx context.Context, img capture.Image, answers *domain.Questionnaire) (domain.AnalysisResult, error)
}

// Session is one user's app state: navigation, the conversation, and the
// resources tied to the current view. All methods are safe for concurrent use.
type Session struct {
	id   string
	deps *Deps

	mu           sync.Mutex
	state        navigator.State
	store        *conversation.Store
	imageContext string
	chatBusy     bool
	scanBusy     bool
	chatVisit    uint64
	stream       capture.Stream
	capturing    capture.Stream // stream being read by CaptureCamera
	lastSeen     time.Time
	closed       bool
}

// Snapshot is the navigator view of a session.
type Snapshot struct {
	ID           string `json:"id"`
	ActiveTab    string `json:"activeTab"`
	MenuOpen     bool   `json:"menuOpen"`
	HasPending   bool   `json:"hasPendingAnalysis"`
	ChatBusy     bool   `json:"chatBusy"`
	ScanBusy     bool   `json:"scanBusy"`
	CameraOpen   bool   `json:"cameraOpen"`
	MessageCount int    `json:"messageCount"`
}

// Chat is what the chat view renders.
type Chat struct {
	Messages     []domain.Message `json:"messages"`
	ImageContext string           `json:"imageContext,omitempty"`
	Busy         bool             `json:"busy"`
}

func (s *Session) ID() string { return s.id }

func (s *Session) logger() *slog.Logger {
	return s.deps.Logger.With("session_id", s.id)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:           s.id,
		ActiveTab:    s.state.ActiveTab.String(),
		MenuOpen:     s.state.MenuOpen,
		HasPending:   s.state.Pending != nil && !s.state.Pending.Consumed(),
		ChatBusy:     s.chatBusy,
		ScanBusy:     s.scanBusy,
		CameraOpen:   s.stream != nil,
		MessageCount: s.store.Len(),
	}
}

// setState installs next. Leaving the chat tab starts a new chat visit so
// that answers still in flight for the old visit are discarded.
func (s *Session) setState(next navigator.State) {
	if s.state.ActiveTab == navigator.TabChat && next.ActiveTab != navigator.TabChat {
		s.chatVisit++
	}
	s.state = next
}

func (s *Session) SelectTab(tab navigator.Tab) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := navigator.SelectTab(s.state, tab)
	if err != nil {
		return s.snapshotLocked(), err
	}
	s.setState(next)
	return s.snapshotLocked(), nil
}

func (s *Session) SetMenu(open bool) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if open {
		s.setState(navigator.OpenMenu(s.state))
	} else {
		s.setState(navigator.CloseMenu(s.state))
	}
	return s.snapshotLocked()
}

func (s *Session) MenuNavigate(page string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := navigator.MenuNavigate(s.state, page)
	if err != nil {
		return s.snapshotLocked(), err
	}
	s.setState(next)
	return s.snapshotLocked(), nil
}

// ChatView shows the chat tab. A scan result waiting in the handoff is turned
// into exactly two messages, the photo echo and the analysis, and the photo
// becomes the image context for later questions.
func (s *Session) ChatView() Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enterChatLocked()
	next, result := navigator.Drain(s.state)
	s.setState(next)
	if result != nil {
		s.imageContext = result.ImageRef
		s.store.Append(AnalysisEcho, domain.SenderUser, result.ImageRef)
		s.store.Append(result.AnalysisText, domain.SenderAssistant, "")
		s.logger().Info("scan result delivered to chat", "image_ref", result.ImageRef)
	}

	return Chat{
		Messages:     s.store.Messages(),
		ImageContext: s.imageContext,
		Busy:         s.chatBusy,
	}
}

func (s *Session) enterChatLocked() {
	if s.state.ActiveTab != navigator.TabChat {
		next, _ := navigator.SelectTab(s.state, navigator.TabChat)
		s.setState(next)
	}
}

// Send posts text to the chat and waits for the answer. It returns the
// messages it appended: the user's message, followed by the assistant's reply
// unless the chat was left before the reply arrived. Advisor failures are
// answered with advisor.FallbackAdvice rather than returned.
func (s *Session) Send(ctx context.Context, text string) ([]domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.chatBusy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.enterChatLocked()
	s.chatBusy = true
	visit := s.chatVisit
	imageRef := s.imageContext
	userMsg := s.store.Append(text, domain.SenderUser, "")
	s.mu.Unlock()

	answer := s.ask(context.WithoutCancel(ctx), text, imageRef)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatBusy = false
	if s.closed || s.chatVisit != visit {
		s.logger().Info("dropping late chat answer", "chars", len(answer))
		return []domain.Message{userMsg}, nil
	}
	reply := s.store.Append(answer, domain.SenderAssistant, "")
	return []domain.Message{userMsg, reply}, nil
}

func (s *Session) ask(ctx context.Context, text, imageRef string) string {
	prompt, err := advisor.BuildChatPrompt(ctx, text, imageRef, s.deps.Resolver)
	if err != nil {
		s.logger().Warn("failed to build chat prompt", "error", err)
		return advisor.FallbackAdvice
	}
	answer, err := s.deps.Advisor.Advise(ctx, prompt)
	if err != nil {
		s.logger().Warn("chat request failed", "error", err)
		return advisor.FallbackAdvice
	}
	return answer
}

// Scan analyzes img and, on success, hands the result to the chat view and
// switches to it. Failures leave the navigator untouched so the user can
// retry.
func (s *Session) Scan(ctx context.Context, img capture.Image, answers *domain.Questionnaire) (domain.AnalysisResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.AnalysisResult{}, ErrClosed
	}
	if s.scanBusy {
		s.mu.Unlock()
		return domain.AnalysisResult{}, ErrBusy
	}
	s.scanBusy = true
	s.mu.Unlock()

	result, err := s.deps.Analyzer.Analyze(context.WithoutCancel(ctx), img, answers)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanBusy = false

	switch {
	case errors.Is(err, advisor.ErrIncompleteQuestionnaire):
		return domain.AnalysisResult{}, ErrInvalidQuestionnaire
	case err != nil:
		s.logger().Warn("scan failed", "error", err)
		return domain.AnalysisResult{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	if !s.closed {
		s.setState(navigator.CompleteScan(s.state, result))
	}
	return result, nil
}

// OpenCamera starts the camera stream. Opening an already open camera is a
// no-op.
func (s *Session) OpenCamera(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.stream != nil {
		s.mu.Unlock()
		return nil
	}
	cam := s.deps.Camera
	s.mu.Unlock()

	if cam == nil {
		return capture.ErrNoCamera
	}
	stream, err := cam.Open(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.stream != nil {
		stopStream(s.logger(), stream)
		if s.closed {
			return ErrClosed
		}
		return nil
	}
	s.stream = stream
	s.logger().Info("camera opened")
	return nil
}

// CaptureCamera grabs one frame from the open camera. The stream is released
// whether or not the capture succeeds.
func (s *Session) CaptureCamera(ctx context.Context) (capture.Image, error) {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	if stream != nil {
		s.capturing = stream
	}
	s.mu.Unlock()

	if stream == nil {
		return capture.Image{}, ErrCameraNotOpen
	}
	defer func() {
		s.mu.Lock()
		if s.capturing == stream {
			s.capturing = nil
		}
		s.mu.Unlock()
	}()
	return capture.CaptureFrom(ctx, stream)
}

// CancelCamera releases the camera if it is open, including one a capture is
// still reading from.
func (s *Session) CancelCamera() {
	s.mu.Lock()
	streams := s.takeStreams()
	s.mu.Unlock()

	for _, stream := range streams {
		stopStream(s.logger(), stream)
	}
	if len(streams) > 0 {
		s.logger().Info("camera closed")
	}
}

// Close releases every resource held by the session. Answers that arrive
// afterwards are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	streams := s.takeStreams()
	s.mu.Unlock()

	for _, stream := range streams {
		stopStream(s.logger(), stream)
	}
}

// takeStreams detaches the open and capturing streams. Callers hold s.mu.
func (s *Session) takeStreams() []capture.Stream {
	var streams []capture.Stream
	for _, st := range []*capture.Stream{&s.stream, &s.capturing} {
		if *st != nil {
			streams = append(streams, *st)
			*st = nil
		}
	}
	return streams
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func stopStream(logger *slog.Logger, stream capture.Stream) {
	if err := stream.Stop(); err != nil {
		logger.Warn("failed to stop camera stream", "error", err)
	}
}
