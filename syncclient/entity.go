package syncclient

import (
	"time"

	"github.com/kenshaw/syncdoc/jsondiff"
)

// Entity is the local record for a single synced document: the last
// server-confirmed snapshot, an optional local working copy pending
// flush, and the change record currently in flight for it, if any.
//
// At quiescence exactly one of {no local edit}, {Last pending}, {Change
// in-flight} holds.
type Entity struct {
	Object  map[string]interface{}
	Version *int

	Last   jsondiff.Value
	Change *ChangeRecord

	checkTimer Timer

	Modified time.Time
}

func cloneEntityObject(v jsondiff.Value) map[string]interface{} {
	obj, _ := jsondiff.DeepCopy(v).(map[string]interface{})
	if obj == nil {
		obj = map[string]interface{}{}
	}
	return obj
}
