package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/tessara/groundline/core"
)

// Key prefixes for different data types
const (
	chunkRecordPrefix  = "chu"
	chunkScopePrefix   = "chus"
	sourceRecordPrefix = "src"
	sourceAgentPrefix  = "srca"
	sourceIDSeq        = "srcseq"
	jobRecordPrefix    = "job"
	jobIdemKeyPrefix   = "jobk"
	jobIDSeq           = "jobseq"
	usageRecordPrefix  = "usg"
)

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeChunkScopeKey generates a composite key for the chunk scope index.
// Format: prefix:tenant:agent:source:ordinal, all BigEndian so that one
// prefix scan covers exactly one tenant/agent keyspace and, within it,
// one source's chunks in ordinal order.
func makeChunkScopeKey(tenantID, agentID, sourceID core.ID, ordinal int) []byte {
	prefix := chunkScopePrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+32)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(tenantID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(agentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(sourceID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(ordinal))
	return buf
}

// makeChunkAgentPrefix generates the scan prefix covering every chunk
// owned by one (tenant, agent) pair.
func makeChunkAgentPrefix(tenantID, agentID core.ID) []byte {
	prefix := chunkScopePrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+16)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(tenantID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(agentID))
	return buf
}

// makeChunkSourcePrefix generates the scan prefix covering every chunk
// belonging to one source.
func makeChunkSourcePrefix(tenantID, agentID, sourceID core.ID) []byte {
	prefix := makeChunkAgentPrefix(tenantID, agentID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(sourceID))
	return buf
}

// makeSourceKey generates a key for a source by ID.
func makeSourceKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", sourceRecordPrefix, id))
}

// makeSourceAgentKey generates a composite key for the agent index.
// Format: prefix:tenant:agent:source
func makeSourceAgentKey(tenantID, agentID, sourceID core.ID) []byte {
	prefix := sourceAgentPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+24)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(tenantID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(agentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(sourceID))
	return buf
}

// makeSourceAgentPrefix generates the scan prefix covering every source
// owned by one (tenant, agent) pair.
func makeSourceAgentPrefix(tenantID, agentID core.ID) []byte {
	prefix := sourceAgentPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+16)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(tenantID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(agentID))
	return buf
}

// makeJobKey generates a key for a job by ID.
func makeJobKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", jobRecordPrefix, id))
}

// makeJobIdemKey generates a key for the idempotency-key index.
// Format: prefix:key
func makeJobIdemKey(key string) []byte {
	return []byte(jobIdemKeyPrefix + ":" + key)
}

// makeUsageKey generates a key for a usage event by message ID.
func makeUsageKey(messageID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", usageRecordPrefix, messageID))
}
