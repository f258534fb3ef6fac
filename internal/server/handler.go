package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"time"

	"github.com/danmuck/intentctl/internal/gateway"
	"github.com/danmuck/intentctl/internal/intent"
	"github.com/danmuck/intentctl/internal/protocol"
	"github.com/danmuck/intentctl/internal/protocol/frame"
	"github.com/danmuck/intentctl/internal/protocol/framed"
	"github.com/danmuck/intentctl/internal/protocol/legacy"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	outcomeDropped   = "dropped"
	commandUndecoded = "undecoded"
)

// handle is the fault boundary for one connection.
func (s *Server) handle(conn net.Conn) {
	logger := log.With().
		Str("conn", uuid.NewString()).
		Str("remote", conn.RemoteAddr().String()).
		Logger()

	s.active.Add(1)
	s.metrics.ConnectionActive(1)
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("connection handler panic")
		}
		s.closeConn(conn)
		s.untrack(conn)
		s.active.Add(-1)
		s.metrics.ConnectionActive(-1)
		s.wg.Done()
	}()

	s.serveConn(conn, logger)
}

// serveConn runs DetectProtocol then hands the connection to the dialect handler.
func (s *Server) serveConn(conn net.Conn, logger zerolog.Logger) {
	var prefix [protocol.DetectLen]byte
	s.armRead(conn)
	if _, err := io.ReadFull(conn, prefix[:]); err != nil {
		logger.Debug().Err(err).Msg("peer closed before protocol detection")
		return
	}

	mode := protocol.Detect(prefix)
	s.metrics.ConnectionOpened(mode.String())
	logger = logger.With().Str("mode", mode.String()).Logger()
	logger.Debug().Msg("connection opened")

	switch mode {
	case protocol.ModeLegacy:
		s.serveLegacy(conn, prefix, logger)
	default:
		s.serveFramed(conn, prefix, logger)
	}
}

func (s *Server) serveFramed(conn net.Conn, prefix [protocol.DetectLen]byte, logger zerolog.Logger) {
	mode := protocol.ModeFramed.String()

	payload, err := frame.ReadFrameResume(prefix[:], conn, s.cfg.FrameLimits)
	if err != nil {
		if errors.Is(err, frame.ErrPayloadTooLarge) {
			err = fmt.Errorf("%w: %v", protocol.ErrMalformedFrame, err)
			s.metrics.RequestHandled(mode, commandUndecoded, protocol.Outcome(err))
			logger.Warn().Err(err).Msg("framed payload rejected")
			s.writeFramedError(conn, err, logger)
			return
		}
		s.metrics.RequestHandled(mode, commandUndecoded, outcomeDropped)
		logger.Debug().Err(err).Msg("framed read abandoned")
		return
	}

	req, err := framed.DecodeRequest(payload)
	if err != nil {
		s.metrics.RequestHandled(mode, commandUndecoded, protocol.Outcome(err))
		logger.Debug().Err(err).Int("bytes", len(payload)).Msg("framed decode failed")
		s.writeFramedError(conn, err, logger)
		return
	}

	result, err := s.dispatch(req, logger)
	s.metrics.RequestHandled(mode, string(req.Command()), protocol.Outcome(err))
	if err != nil {
		s.writeFramedError(conn, err, logger)
		return
	}
	out, err := framed.EncodeSuccess(result)
	if err != nil {
		logger.Error().Err(err).Msg("framed encode failed")
		s.writeFramedError(conn, err, logger)
		return
	}
	s.write(conn, out, logger)
}

// serveLegacy performs one bounded read after the prefix; unrecognised or
// malformed input gets no reply.
func (s *Server) serveLegacy(conn net.Conn, prefix [protocol.DetectLen]byte, logger zerolog.Logger) {
	mode := protocol.ModeLegacy.String()

	buf := make([]byte, len(prefix)+s.cfg.LegacyReadLimit)
	copy(buf, prefix[:])
	n, err := conn.Read(buf[len(prefix):])
	if err != nil && !errors.Is(err, io.EOF) {
		s.metrics.RequestHandled(mode, commandUndecoded, outcomeDropped)
		logger.Debug().Err(err).Msg("legacy read failed")
		return
	}
	message := buf[:len(prefix)+n]

	req, ok := legacy.Decode(message)
	if !ok {
		s.metrics.RequestHandled(mode, commandUndecoded, outcomeDropped)
		logger.Debug().Int("bytes", len(message)).Msg("legacy message dropped")
		return
	}

	result, err := s.dispatch(req, logger)
	command := string(req.Command())
	switch {
	case err == nil && req.Command() == protocol.CommandTrain:
		s.metrics.RequestHandled(mode, command, protocol.Outcome(nil))
		s.write(conn, legacy.TrainOK, logger)
	case err == nil:
		out, encErr := legacy.EncodeResult(*result)
		if encErr != nil {
			s.metrics.RequestHandled(mode, command, outcomeDropped)
			logger.Error().Err(encErr).Msg("legacy encode failed")
			return
		}
		s.metrics.RequestHandled(mode, command, protocol.Outcome(nil))
		s.write(conn, out, logger)
	case req.Command() == protocol.CommandQuery && legacyReportable(err):
		s.metrics.RequestHandled(mode, command, protocol.Outcome(err))
		s.write(conn, legacy.QueryFailed, logger)
	default:
		s.metrics.RequestHandled(mode, command, outcomeDropped)
		logger.Warn().Err(err).Msg("legacy request failed without reply")
	}
}

// dispatch routes a decoded request to the gateway.
func (s *Server) dispatch(req protocol.Request, logger zerolog.Logger) (*intent.Result, error) {
	switch r := req.(type) {
	case protocol.TrainRequest:
		if err := s.gateway.Retrain(r.Keywords, r.Types, r.Locations); err != nil {
			logger.Error().Err(err).Msg("train failed")
			return nil, err
		}
		logger.Info().
			Int("keywords", len(r.Keywords)).
			Int("types", len(r.Types)).
			Int("locations", len(r.Locations)).
			Msg("trained")
		return nil, nil
	case protocol.QueryRequest:
		res, found, err := s.gateway.Classify(r.Text)
		if errors.Is(err, gateway.ErrNotTrained) {
			logger.Debug().Msg("query before train")
			return nil, fmt.Errorf("%w: %w", protocol.ErrNotTrained, err)
		}
		if err != nil {
			logger.Debug().Err(err).Msg("query failed")
			return nil, err
		}
		if !found {
			logger.Debug().Str("text", r.Text).Msg("query matched nothing")
			return nil, protocol.ErrNoMatch
		}
		logger.Debug().Str("intent", res.IntentType).Float64("confidence", res.Confidence).Msg("query matched")
		return &res, nil
	default:
		return nil, fmt.Errorf("%w: %T", protocol.ErrInvalidCommand, req)
	}
}

func legacyReportable(err error) bool {
	return errors.Is(err, protocol.ErrNoMatch) || errors.Is(err, protocol.ErrNotTrained)
}

func (s *Server) writeFramedError(conn net.Conn, err error, logger zerolog.Logger) {
	out, encErr := framed.EncodeError(err)
	if encErr != nil {
		logger.Error().Err(encErr).Msg("framed error encode failed")
		return
	}
	s.write(conn, out, logger)
}

func (s *Server) write(conn net.Conn, b []byte, logger zerolog.Logger) {
	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if _, err := conn.Write(b); err != nil {
		logger.Debug().Err(err).Msg("write failed")
	}
}

// closeConn half-closes and drains unread input before closing, so the
// kernel does not answer queued bytes with a reset that discards the reply.
func (s *Server) closeConn(conn net.Conn) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		_ = conn.Close()
		return
	}
	if err := tcp.CloseWrite(); err == nil {
		_ = tcp.SetReadDeadline(time.Now().Add(s.cfg.LingerTimeout))
		_, _ = io.Copy(io.Discard, io.LimitReader(tcp, s.cfg.LingerLimit))
	}
	_ = tcp.Close()
}

func (s *Server) armRead(conn net.Conn) {
	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
}
