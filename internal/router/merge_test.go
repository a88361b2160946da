package router

import "testing"

func TestMergeStreamTextAppendsDisjointChunk(t *testing.T) {
	got := mergeStreamText("hello ", "world")
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestMergeStreamTextDedupesOverlap(t *testing.T) {
	got := mergeStreamText("the quick brown", " brown fox")
	if got != "the quick brown fox" {
		t.Fatalf("got %q", got)
	}
}

func TestMergeStreamTextIdenticalChunkIsNoop(t *testing.T) {
	got := mergeStreamText("same", "same")
	if got != "same" {
		t.Fatalf("got %q", got)
	}
}

func TestMergeStreamTextIncomingSupersetReplaces(t *testing.T) {
	got := mergeStreamText("hel", "hello")
	if got != "hello" {
		t.Fatalf("got %q", got)
	}
}
