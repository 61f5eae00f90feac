package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"

	"github.com/sourcegraph/jsonrpc2"
)

// RPCServer drives the run manager over a jsonrpc2 stream, normally stdio.
// Editor plugins and orchestration scripts use it instead of the HTTP API
// when they already speak jsonrpc2.
type RPCServer struct {
	Manager *RunManager
	Logger  *log.Logger
}

// rpcStartParams is the run.start payload.
type rpcStartParams struct {
	Description string `json:"description"`
	ProjectType string `json:"project_type"`
	Workspace   string `json:"workspace"`
}

// rpcRunParams identifies an existing run.
type rpcRunParams struct {
	ID string `json:"id"`
}

// ServeStdio blocks serving requests on stdin/stdout until the stream
// closes or the context is cancelled.
func (s *RPCServer) ServeStdio(ctx context.Context) error {
	rwc := &stdioReadWriteCloser{reader: os.Stdin, writer: os.Stdout}
	return s.ServeStream(ctx, rwc)
}

// ServeStream serves requests over an arbitrary stream, used by tests.
func (s *RPCServer) ServeStream(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle))
	if s.Logger != nil {
		s.Logger.Printf("rpc endpoint ready")
	}
	select {
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	case <-conn.DisconnectNotify():
		return nil
	}
}

func (s *RPCServer) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	switch req.Method {
	case "run.start":
		var params rpcStartParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		run, err := s.Manager.Start(params.Description, params.ProjectType, params.Workspace)
		if err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		}
		return run, nil
	case "run.resume":
		var params rpcStartParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		run, err := s.Manager.Resume(params.Workspace)
		if err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		}
		return run, nil
	case "run.status":
		var params rpcRunParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		run, ok := s.Manager.Get(params.ID)
		if !ok {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "run not found"}
		}
		return run, nil
	case "run.list":
		return s.Manager.List(), nil
	case "run.interrupt":
		var params rpcRunParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		if err := s.Manager.Interrupt(params.ID); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		}
		return map[string]string{"id": params.ID, "status": "interrupt requested"}, nil
	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not handled"}
	}
}

func unmarshalParams(req *jsonrpc2.Request, out interface{}) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "params required"}
	}
	if err := json.Unmarshal(*req.Params, out); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeParseError, Message: err.Error()}
	}
	return nil
}

// stdioReadWriteCloser glues separate reader/writer handles into the single
// stream jsonrpc2 expects.
type stdioReadWriteCloser struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (s *stdioReadWriteCloser) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s *stdioReadWriteCloser) Write(p []byte) (int, error) { return s.writer.Write(p) }

func (s *stdioReadWriteCloser) Close() error {
	rerr := s.reader.Close()
	werr := s.writer.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}
