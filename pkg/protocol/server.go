package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/stagegate/stagegate/pkg/artifact"
	"github.com/stagegate/stagegate/pkg/deliverable"
	"github.com/stagegate/stagegate/pkg/verify"
)

// ToolServer exposes deliverable verification over JSON-RPC 2.0 on a
// line-delimited stream, so an orchestrator can gate its stages without
// linking this module directly.
type ToolServer struct {
	verifier *verify.Verifier
	logger   *zap.Logger
	version  string
	done     chan struct{}
}

// methods lists everything the server answers, as reported by initialize.
var methods = []string{
	MethodInitialize,
	MethodProducersList,
	MethodVerify,
	MethodPrecheck,
	MethodShutdown,
}

// NewToolServer creates a server over the given verifier.
func NewToolServer(verifier *verify.Verifier, version string, logger *zap.Logger) *ToolServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolServer{
		verifier: verifier,
		logger:   logger,
		version:  version,
		done:     make(chan struct{}),
	}
}

// HandleRaw parses one line as a request and dispatches it.
func (s *ToolServer) HandleRaw(data []byte) Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return NewErrorResponse(nil, CodeParseError, "parse error: "+err.Error(), nil)
	}
	return s.Handle(req)
}

// Handle dispatches a single request to the matching method.
func (s *ToolServer) Handle(req Request) Response {
	if req.JSONRPC != "2.0" {
		return NewErrorResponse(req.ID, CodeInvalidRequest, "invalid jsonrpc version", nil)
	}

	var (
		result any
		rpcErr *Error
	)
	switch req.Method {
	case MethodInitialize:
		result = InitializeResult{
			Name:    "stagegate",
			Version: s.version,
			Methods: methods,
		}
	case MethodProducersList:
		result = s.producersList()
	case MethodVerify:
		result, rpcErr = s.verify(req.Params)
	case MethodPrecheck:
		result, rpcErr = s.precheck(req.Params)
	case MethodShutdown:
		close(s.done)
		result = map[string]bool{"ok": true}
	default:
		return NewErrorResponse(req.ID, CodeMethodNotFound,
			fmt.Sprintf("method not found: %s", req.Method), nil)
	}

	if rpcErr != nil {
		return Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return NewResponse(req.ID, result)
}

func (s *ToolServer) producersList() []ProducerInfo {
	registry := s.verifier.Registry()
	names := registry.Producers()
	infos := make([]ProducerInfo, 0, len(names))
	for _, name := range names {
		spec, err := registry.Lookup(name)
		if err != nil {
			continue
		}
		infos = append(infos, ProducerInfo{
			Name:        name,
			Stage:       spec.Stage,
			Description: spec.Description,
			Paths:       spec.Paths,
		})
	}
	return infos
}

func (s *ToolServer) verify(params json.RawMessage) (any, *Error) {
	producer, rpcErr := producerParam(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	result, err := s.verifier.Verify(producer)
	if err != nil {
		return nil, toRPCError(err)
	}
	return result, nil
}

func (s *ToolServer) precheck(params json.RawMessage) (any, *Error) {
	producer, rpcErr := producerParam(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	result, err := s.verifier.Precheck(producer)
	if err != nil {
		return nil, toRPCError(err)
	}
	return result, nil
}

// producerParam decodes the {producer} argument shared by the verify and
// precheck methods.
func producerParam(params json.RawMessage) (string, *Error) {
	var p VerifyParams
	if len(params) > 0 && string(params) != "null" {
		if err := json.Unmarshal(params, &p); err != nil {
			return "", &Error{
				Code:    CodeInvalidParams,
				Message: fmt.Sprintf("invalid params: %v", err),
			}
		}
	}
	if p.Producer == "" {
		return "", &Error{Code: CodeInvalidParams, Message: "producer is required"}
	}
	return p.Producer, nil
}

// toRPCError maps verifier errors to JSON-RPC error objects.
func toRPCError(err error) *Error {
	switch {
	case errors.Is(err, deliverable.ErrUnknownProducer):
		return &Error{Code: CodeUnknownProducer, Message: err.Error()}
	case errors.Is(err, artifact.ErrUnavailable):
		return &Error{Code: CodeStoreUnavailable, Message: err.Error()}
	}
	return &Error{Code: CodeInternalError, Message: err.Error()}
}

// Serve reads newline-delimited JSON-RPC requests from r and writes
// responses to w. It returns after a shutdown request or when r is
// exhausted.
func (s *ToolServer) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024) // 1MB max line

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		resp := s.HandleRaw([]byte(line))
		if err := encoder.Encode(resp); err != nil {
			s.logger.Error("encode response", zap.Error(err))
		}

		select {
		case <-s.done:
			return nil
		default:
		}
	}

	return scanner.Err()
}
