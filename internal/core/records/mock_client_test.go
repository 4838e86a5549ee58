package records

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"Plover/internal/atproto/pds"
)

// ================================================================================
// Mock PDS Client
// ================================================================================

// mockPDSClient implements the pds.Client interface for testing
// It stores records in memory, records every call, and allows simulating PDS errors
type mockPDSClient struct {
	records     map[string]map[string]any // "repo/collection" -> rkey -> record
	calls       []string                  // "Method repo collection rkey"
	createError error
	getError    error
	deleteError error
	putError    error
	listError   error
	did         string
	counter     int
}

func newMockPDSClient(did string) *mockPDSClient {
	return &mockPDSClient{
		records: make(map[string]map[string]any),
		did:     did,
	}
}

func (m *mockPDSClient) DID() string     { return m.did }
func (m *mockPDSClient) HostURL() string { return "https://pds.test.local" }

func (m *mockPDSClient) log(method, repo, collection, rkey string) {
	m.calls = append(m.calls, strings.TrimSpace(fmt.Sprintf("%s %s %s %s", method, repo, collection, rkey)))
}

func (m *mockPDSClient) nextCID() string {
	m.counter++
	return fmt.Sprintf("bafytest%d", m.counter)
}

func (m *mockPDSClient) put(repo, collection, rkey string, record any) {
	key := repo + "/" + collection
	if m.records[key] == nil {
		m.records[key] = make(map[string]any)
	}
	m.records[key][rkey] = record
}

func (m *mockPDSClient) CreateRecord(ctx context.Context, repo, collection, rkey string, record any) (string, string, error) {
	m.log("CreateRecord", repo, collection, rkey)
	if m.createError != nil {
		return "", "", m.createError
	}
	if rkey == "" {
		rkey = fmt.Sprintf("gen%d", m.counter)
	}
	m.put(repo, collection, rkey, record)
	return fmt.Sprintf("at://%s/%s/%s", repo, collection, rkey), m.nextCID(), nil
}

func (m *mockPDSClient) GetRecord(ctx context.Context, repo, collection, rkey string) (*pds.RecordResponse, error) {
	m.log("GetRecord", repo, collection, rkey)
	if m.getError != nil {
		return nil, m.getError
	}
	record, ok := m.records[repo+"/"+collection][rkey]
	if !ok {
		return nil, pds.ErrNotFound
	}
	value, _ := record.(map[string]any)
	return &pds.RecordResponse{
		URI:   fmt.Sprintf("at://%s/%s/%s", repo, collection, rkey),
		CID:   "bafystored" + rkey,
		Value: value,
	}, nil
}

func (m *mockPDSClient) DeleteRecord(ctx context.Context, repo, collection, rkey string) error {
	m.log("DeleteRecord", repo, collection, rkey)
	if m.deleteError != nil {
		return m.deleteError
	}
	delete(m.records[repo+"/"+collection], rkey)
	return nil
}

func (m *mockPDSClient) ListRecords(ctx context.Context, repo, collection string, limit int, cursor string) (*pds.ListRecordsResponse, error) {
	m.log("ListRecords", repo, collection, "")
	if m.listError != nil {
		return nil, m.listError
	}
	coll := m.records[repo+"/"+collection]
	keys := make([]string, 0, len(coll))
	for k := range coll {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	resp := &pds.ListRecordsResponse{}
	for _, k := range keys {
		if limit > 0 && len(resp.Records) == limit {
			break
		}
		value, _ := coll[k].(map[string]any)
		resp.Records = append(resp.Records, pds.RecordEntry{
			URI:   fmt.Sprintf("at://%s/%s/%s", repo, collection, k),
			CID:   "bafystored" + k,
			Value: value,
		})
	}
	return resp, nil
}

func (m *mockPDSClient) PutRecord(ctx context.Context, repo, collection, rkey string, record any, swapRecord string) (string, string, error) {
	m.log("PutRecord", repo, collection, rkey)
	if m.putError != nil {
		return "", "", m.putError
	}
	m.put(repo, collection, rkey, record)
	return fmt.Sprintf("at://%s/%s/%s", repo, collection, rkey), m.nextCID(), nil
}
