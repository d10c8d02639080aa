package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

type StreamMessageType string

const (
	// Client -> Server
	StreamAnswer StreamMessageType = "answer"
	StreamPing   StreamMessageType = "ping"

	// Server -> Client
	StreamConnected      StreamMessageType = "connected"
	StreamAnswerAck      StreamMessageType = "answer_ack"
	StreamAnswerRejected StreamMessageType = "answer_rejected"
	StreamAnswerFailed   StreamMessageType = "answer_failed"
	StreamError          StreamMessageType = "error"
	StreamPong           StreamMessageType = "pong"
)

const kindUnknownQuestion = "unknown_question"

type inboundMessage struct {
	Type    StreamMessageType `json:"type"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

type StreamMessage struct {
	Type    StreamMessageType `json:"type"`
	Payload any               `json:"payload,omitempty"`
}

type StreamAnswerPayload struct {
	QuestionID     uint                `json:"question_id"`
	SelectedAnswer models.AnswerChoice `json:"selected_answer"`
	TimeSpent      int                 `json:"time_spent"`
	IsFlagged      bool                `json:"is_flagged"`
	ClientRef      string              `json:"client_ref,omitempty"`
}

type ConnectedPayload struct {
	SessionID            uint                 `json:"session_id"`
	Status               models.SessionStatus `json:"status"`
	TimeRemainingSeconds *int                 `json:"time_remaining_seconds,omitempty"`
}

type AnswerAckPayload struct {
	QuestionID    uint                 `json:"question_id"`
	ClientRef     string               `json:"client_ref,omitempty"`
	AnsweredCount int                  `json:"answered_count"`
	Status        models.SessionStatus `json:"status"`
}

type AnswerRejectedPayload struct {
	QuestionID uint   `json:"question_id"`
	ClientRef  string `json:"client_ref,omitempty"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

// AnswerStreamHandler accepts answers one at a time over a websocket. Each answer
// goes through the same bulk-answer path as the REST endpoint, so the session
// lifecycle rules apply unchanged.
type AnswerStreamHandler struct {
	BaseHandler
	sessionService services.SessionService
	upgrader       websocket.Upgrader
}

func NewAnswerStreamHandler(sessionService services.SessionService, allowedOrigins []string, logger utils.Logger) *AnswerStreamHandler {
	return &AnswerStreamHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Stream handles GET /sessions/:id/stream
func (h *AnswerStreamHandler) Stream(c *gin.Context) {
	sessionID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := getUserID(c)

	// Resolve ownership and expiry before upgrading so that failures are plain HTTP errors.
	detail, err := h.sessionService.GetSession(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.respondStreamError(c, err)
		return
	}
	if !detail.Session.Status.IsLive() {
		h.RespondWithError(c, http.StatusUnprocessableEntity, services.KindInvalidState, services.ErrInvalidSessionState.Error(), nil)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.LogError(c, err, "Failed to upgrade answer stream")
		return
	}

	stream := &answerStream{
		handler:   h,
		conn:      conn,
		sessionID: sessionID,
		userID:    userID,
		requestID: utils.RequestIDFromContext(c.Request.Context()),
		ctx:       c.Request.Context(),
		send:      make(chan StreamMessage, sendBuffer),
		done:      make(chan struct{}),
	}
	h.LogInfo(c, "Answer stream opened", "session_id", sessionID)

	stream.enqueue(StreamMessage{Type: StreamConnected, Payload: ConnectedPayload{
		SessionID:            sessionID,
		Status:               detail.Session.Status,
		TimeRemainingSeconds: detail.Session.Progress.TimeRemainingSeconds,
	}})

	go stream.writePump()
	stream.readPump()
}

func (h *AnswerStreamHandler) respondStreamError(c *gin.Context, err error) {
	kind := services.ErrorKind(err)
	status, ok := statusByKind[kind]
	if !ok {
		h.RespondWithError(c, http.StatusInternalServerError, services.KindInternalError, "Internal server error", err)
		return
	}
	h.RespondWithError(c, status, kind, errorMessage(err), err)
}

type answerStream struct {
	handler   *AnswerStreamHandler
	conn      *websocket.Conn
	sessionID uint
	userID    uint
	requestID string
	ctx       context.Context
	send      chan StreamMessage
	done      chan struct{}
}

func (s *answerStream) readPump() {
	defer close(s.send)

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.handler.logger.Warn("Answer stream read failed",
					"session_id", s.sessionID,
					"user_id", s.userID,
					"request_id", s.requestID,
					"error", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.enqueue(StreamMessage{Type: StreamError, Payload: ErrorResponse{Message: "Invalid message format", Code: services.KindValidation}})
			continue
		}

		switch msg.Type {
		case StreamPing:
			s.enqueue(StreamMessage{Type: StreamPong})
		case StreamAnswer:
			if closing := s.handleAnswer(msg.Payload); closing {
				return
			}
		default:
			s.enqueue(StreamMessage{Type: StreamError, Payload: ErrorResponse{Message: "Unknown message type " + string(msg.Type), Code: services.KindValidation}})
		}
	}
}

// handleAnswer records one answer and reports whether the stream should close
// because the session can no longer take answers.
func (s *answerStream) handleAnswer(raw json.RawMessage) bool {
	var payload StreamAnswerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.enqueue(StreamMessage{Type: StreamAnswerRejected, Payload: AnswerRejectedPayload{
			Code:    services.KindValidation,
			Message: "Invalid answer payload",
		}})
		return false
	}

	resp, err := s.handler.sessionService.SubmitBulkAnswers(s.ctx, s.sessionID, s.userID, &services.SubmitAnswersRequest{
		Answers: []services.AnswerInput{{
			QuestionID:     payload.QuestionID,
			SelectedAnswer: payload.SelectedAnswer,
			TimeSpent:      payload.TimeSpent,
			IsFlagged:      payload.IsFlagged,
		}},
	})
	if err != nil {
		return s.reject(payload, err)
	}

	if len(resp.DroppedQuestionIDs) > 0 {
		s.enqueue(StreamMessage{Type: StreamAnswerRejected, Payload: AnswerRejectedPayload{
			QuestionID: payload.QuestionID,
			ClientRef:  payload.ClientRef,
			Code:       kindUnknownQuestion,
			Message:    "question is not part of this session",
		}})
		return false
	}

	s.enqueue(StreamMessage{Type: StreamAnswerAck, Payload: AnswerAckPayload{
		QuestionID:    payload.QuestionID,
		ClientRef:     payload.ClientRef,
		AnsweredCount: resp.AnsweredCount,
		Status:        resp.Status,
	}})
	return false
}

func (s *answerStream) reject(payload StreamAnswerPayload, err error) bool {
	if !services.IsStateRejection(err) {
		s.handler.logger.LogError(err, "Answer stream submit failed",
			"session_id", s.sessionID,
			"user_id", s.userID,
			"request_id", s.requestID)
		s.enqueue(StreamMessage{Type: StreamAnswerFailed, Payload: AnswerRejectedPayload{
			QuestionID: payload.QuestionID,
			ClientRef:  payload.ClientRef,
			Code:       services.KindInternalError,
			Message:    "answer could not be recorded",
			Retryable:  true,
		}})
		return false
	}

	kind := services.ErrorKind(err)
	s.enqueue(StreamMessage{Type: StreamAnswerRejected, Payload: AnswerRejectedPayload{
		QuestionID: payload.QuestionID,
		ClientRef:  payload.ClientRef,
		Code:       kind,
		Message:    errorMessage(err),
	}})

	switch kind {
	case services.KindExpired, services.KindTimeExceeded, services.KindNotFound:
		return true
	}
	return false
}

func (s *answerStream) enqueue(msg StreamMessage) {
	select {
	case s.send <- msg:
	case <-s.done:
	}
}

func (s *answerStream) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(s.done)
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
