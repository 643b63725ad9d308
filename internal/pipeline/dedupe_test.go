package pipeline

import "testing"

func TestDedupeFilterIdempotence(t *testing.T) {
	var d DedupeFilter
	if !d.Accept("hello there") {
		t.Fatal("first occurrence should be accepted")
	}
	if d.Accept("hello there") {
		t.Fatal("immediate repeat should be dropped")
	}
	d2 := DedupeFilter{lastProcessed: "hello there", hasProcessed: true}
	if d2.Accept("hello   there") {
		t.Fatal("whitespace-collapsed repeat should be dropped (lastProcessed is case-sensitive but whitespace-insensitive)")
	}
}

func TestDedupeFilterEchoCaseInsensitive(t *testing.T) {
	var d DedupeFilter
	d.NotifySpoken("I am doing well today")
	if d.Accept("i am doing well today") {
		t.Fatal("echo of last spoken response (case-insensitive) should be dropped")
	}
	if d.Accept("I   AM doing   WELL today") {
		t.Fatal("echo with whitespace/case variation should be dropped")
	}
}

func TestDedupeFilterDistinctAccepted(t *testing.T) {
	var d DedupeFilter
	if !d.Accept("first sentence") {
		t.Fatal("first sentence should be accepted")
	}
	if !d.Accept("second sentence") {
		t.Fatal("distinct second sentence should be accepted")
	}
}
