package server

import (
	"github.com/marmos91/recorddb/internal/logger"
	"github.com/marmos91/recorddb/internal/protocol"
	"github.com/marmos91/recorddb/pkg/store"
)

// Business handlers: validated messages mapped to record table operations.
// Business failures (bad add string, remove on empty, table full) answer
// with a failure status and leave the connection open; only protocol and
// transfer errors cost the session.

// handleAdd parses the add string and appends a record.
func (m *machine) handleAdd(s *session, payload []byte) {
	addstring, err := protocol.DecodeAddPayload(payload)
	if err != nil {
		logger.Warn("Client fd=%d: %v", s.fd, err)
		m.replyError(s)
		return
	}

	status := protocol.StatusSuccess
	rec, err := store.ParseAddString(addstring)
	if err == nil {
		err = m.table.Append(rec)
	}
	if err != nil {
		logger.Info("Client fd=%d: add rejected: %v", s.fd, err)
		status = protocol.StatusError
	}

	if err := SendFull(s.fd, protocol.EncodeStatusResp(protocol.MsgEmployeeAddResp, status)); err != nil {
		logger.Debug("Client fd=%d: add reply: %v", s.fd, err)
		m.sessions.release(s)
		return
	}

	if status == protocol.StatusSuccess {
		logger.Info("Client fd=%d: added record %q (count=%d)", s.fd, rec.Name, m.table.Count())
	}
}

// handleList replies with the record count, then streams every record in
// table order as a separate write.
func (m *machine) handleList(s *session, payload []byte) {
	if len(payload) != 0 {
		logger.Warn("Client fd=%d: list request with %d byte payload", s.fd, len(payload))
		m.replyError(s)
		return
	}

	if err := SendFull(s.fd, protocol.EncodeListResp(m.table.Count())); err != nil {
		logger.Debug("Client fd=%d: list reply: %v", s.fd, err)
		m.sessions.release(s)
		return
	}

	for i, rec := range m.table.Records() {
		buf, err := protocol.EncodeRecord(rec)
		if err != nil {
			// Table invariants make this unreachable; give up on the
			// session rather than desynchronize the stream.
			logger.Error("Client fd=%d: encode record %d: %v", s.fd, i, err)
			m.sessions.release(s)
			return
		}
		if err := SendFull(s.fd, buf); err != nil {
			logger.Debug("Client fd=%d: stream record %d: %v", s.fd, i, err)
			m.sessions.release(s)
			return
		}
	}

	logger.Debug("Client fd=%d: sent %d records", s.fd, m.table.Count())
}

// handleRemove drops the last record, if any.
func (m *machine) handleRemove(s *session, payload []byte) {
	if len(payload) != 0 {
		logger.Warn("Client fd=%d: remove request with %d byte payload", s.fd, len(payload))
		m.replyError(s)
		return
	}

	status := protocol.StatusSuccess
	if err := m.table.RemoveLast(); err != nil {
		logger.Info("Client fd=%d: remove rejected: %v", s.fd, err)
		status = protocol.StatusError
	}

	if err := SendFull(s.fd, protocol.EncodeStatusResp(protocol.MsgEmployeeDelResp, status)); err != nil {
		logger.Debug("Client fd=%d: remove reply: %v", s.fd, err)
		m.sessions.release(s)
		return
	}

	if status == protocol.StatusSuccess {
		logger.Info("Client fd=%d: removed last record (count=%d)", s.fd, m.table.Count())
	}
}
