package cache

import (
	"fmt"
	"strconv"
)

// Kind names the operation a cached value memoizes
type Kind string

const (
	// KindChange caches change metadata looked up by number
	KindChange Kind = "change"
	// KindChangeID caches change metadata looked up by Change-Id
	KindChangeID Kind = "change-id"
	// KindChangeQuery caches the single change matched by a query
	KindChangeQuery Kind = "change-query"
	// KindFetch caches the commit a patchset was fetched as. Patchsets are
	// immutable so these entries use the long TTL.
	KindFetch Kind = "fetch"
	// KindQuery caches raw query results
	KindQuery Kind = "query"
	// KindAPI caches REST responses
	KindAPI Kind = "api"
)

// Key identifies one cached value
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.ID
}

func (k Key) bytes() []byte {
	return []byte(k.String())
}

// Change is the key for a change looked up by number
func Change(number uint64) Key {
	return Key{Kind: KindChange, ID: strconv.FormatUint(number, 10)}
}

// ChangeID is the key for a change looked up by Change-Id
func ChangeID(id string) Key {
	return Key{Kind: KindChangeID, ID: id}
}

// ChangeQuery is the key for the change matched by a query
func ChangeQuery(query string) Key {
	return Key{Kind: KindChangeQuery, ID: query}
}

// Fetch is the key for a fetched patchset
func Fetch(change, patchset uint64) Key {
	return Key{Kind: KindFetch, ID: fmt.Sprintf("%d/%d", change, patchset)}
}

// Query is the key for raw query results
func Query(query string) Key {
	return Key{Kind: KindQuery, ID: query}
}

// API is the key for a REST endpoint
func API(endpoint string) Key {
	return Key{Kind: KindAPI, ID: endpoint}
}
