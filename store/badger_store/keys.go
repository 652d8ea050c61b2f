package badger_store

import "encoding/binary"

const (
	documentPrefix    = "docrec:"
	interactionPrefix = "intrec:"
	documentIDSeq     = "docrecseq"
	interactionIDSeq  = "intrecseq"
)

// makeDocumentKey encodes the id big-endian so keys sort by id.
func makeDocumentKey(id int64) []byte {
	buf := make([]byte, len(documentPrefix)+8)
	offset := copy(buf, documentPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeInteractionKey groups interactions by document; within a document
// keys sort by interaction id, which is also creation order.
// Format: prefix:documentID:interactionID
func makeInteractionKey(documentID, interactionID int64) []byte {
	buf := make([]byte, len(interactionPrefix)+16)
	offset := copy(buf, interactionPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(interactionID))
	return buf
}

func makeInteractionDocumentPrefix(documentID int64) []byte {
	buf := make([]byte, len(interactionPrefix)+8)
	offset := copy(buf, interactionPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}
