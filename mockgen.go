//go:build gomock || generate

package webtransport

//go:generate sh -c "go run go.uber.org/mock/mockgen -build_flags=\"-tags=gomock\" -package webtransport -destination mock_quic_conn_test.go github.com/quic-go/webtransport-quic QUICConn"
//go:generate sh -c "go run go.uber.org/mock/mockgen -build_flags=\"-tags=gomock\" -package webtransport -destination mock_quic_stream_test.go github.com/quic-go/webtransport-quic QUICStream"
