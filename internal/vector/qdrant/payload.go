package qdrant

import (
	"github.com/efebarandurmaz/codefinder/internal/vector"
	pb "github.com/qdrant/go-client/qdrant"
)

func str(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func encodePayload(p vector.Payload) map[string]*pb.Value {
	return map[string]*pb.Value{
		"text":        str(p.Text),
		"document_id": str(p.DocumentID),
		"metadata": {Kind: &pb.Value_StructValue{StructValue: &pb.Struct{Fields: map[string]*pb.Value{
			"qdrant_id": str(p.Metadata.QdrantID),
			"source":    str(p.Metadata.Source),
			"file_name": str(p.Metadata.FileName),
		}}}},
	}
}

func decodePayload(m map[string]*pb.Value) vector.Payload {
	meta := m["metadata"].GetStructValue().GetFields()
	return vector.Payload{
		Text:       m["text"].GetStringValue(),
		DocumentID: m["document_id"].GetStringValue(),
		Metadata: vector.Metadata{
			QdrantID: meta["qdrant_id"].GetStringValue(),
			Source:   meta["source"].GetStringValue(),
			FileName: meta["file_name"].GetStringValue(),
		},
	}
}
