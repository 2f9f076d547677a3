package serialize

import (
	"strings"
	"testing"
)

func TestSerializeEscapesText(t *testing.T) {
	root := NewElement("body")
	root.AddChild(NewText("Tom & Jerry <said> \"hi\" > bye"))

	st := Serialize(root, "content.html", nil)
	body := string(st.Body)

	if strings.Contains(body, "Tom & Jerry") {
		t.Errorf("raw & survived escaping: %s", body)
	}
	if !strings.Contains(body, "Tom &amp; Jerry &lt;said&gt; \"hi\" &gt; bye") {
		t.Errorf("text not escaped as expected: %s", body)
	}
}

func TestSerializeEscapesAttributes(t *testing.T) {
	root := NewElement("body")
	p := NewElement("p")
	p.Attrs["title"] = `a "quoted" & <tag>`
	root.AddChild(p)

	st := Serialize(root, "content.html", nil)
	body := string(st.Body)

	if !strings.Contains(body, `title="a &quot;quoted&quot; &amp; &lt;tag&gt;"`) {
		t.Errorf("attribute not escaped as expected: %s", body)
	}
}

func TestSerializeStripsSoftHyphen(t *testing.T) {
	root := NewElement("body")
	root.AddChild(NewText("hyphen­ated"))

	st := Serialize(root, "content.html", nil)
	body := string(st.Body)

	if strings.Contains(body, "­") {
		t.Errorf("soft hyphen was not stripped: %q", body)
	}
	if !strings.Contains(body, "hyphenated") {
		t.Errorf("expected stripped text to read 'hyphenated', got %q", body)
	}
}

func TestSerializePrunesEmptyAnchors(t *testing.T) {
	root := NewElement("body")
	root.AddChild(NewElement("a")) // no attrs, no children, no text
	real := NewElement("a")
	real.Attrs["href"] = "#target"
	root.AddChild(real)
	target := NewElement("p")
	target.Attrs["id"] = "target"
	root.AddChild(target)

	st := Serialize(root, "content.html", nil)
	body := string(st.Body)

	if strings.Count(body, "<a") != 1 {
		t.Errorf("expected exactly one <a> to survive, got body: %s", body)
	}
}

func TestSerializeIDOffsetsKeyedByHref(t *testing.T) {
	root := NewElement("body")
	p := NewElement("p")
	p.Attrs["id"] = "chap1"
	root.AddChild(p)

	st := Serialize(root, "content.html", nil)

	if _, ok := st.IDOffsets["chap1"]; ok {
		t.Error("id offset should not be keyed by the bare id")
	}
	if _, ok := st.IDOffsets["content.html#chap1"]; !ok {
		t.Errorf("expected id offset keyed by href#id, got keys: %v", st.IDOffsets)
	}
}

func TestSerializeTracksAnchorOffsetKindle(t *testing.T) {
	root := NewElement("body")
	root.AddChild(NewText("hello"))

	st := Serialize(root, "content.html", nil)

	want := strings.Index(string(st.Body), "<body>") + len("<body>")
	if int(st.AnchorOffsetKindle) != want {
		t.Errorf("AnchorOffsetKindle = %d, want %d", st.AnchorOffsetKindle, want)
	}
}

func TestSerializeGuide(t *testing.T) {
	root := NewElement("body")
	p := NewElement("p")
	p.Attrs["id"] = "start"
	root.AddChild(p)

	guide := []GuideRef{{Type: "text", Title: "Start", Href: "#start"}}
	st := Serialize(root, "content.html", guide)
	body := string(st.Body)

	if !strings.Contains(body, `<reference type="text" title="Start" href="filepos=`) {
		t.Errorf("guide reference not serialized as expected: %s", body)
	}
	if !strings.Contains(body, "<guide>") || !strings.Contains(body, "</guide>") {
		t.Errorf("missing <guide> wrapper: %s", body)
	}
}

func TestSerializeNoGuideWhenEmpty(t *testing.T) {
	root := NewElement("body")
	st := Serialize(root, "content.html", nil)
	if strings.Contains(string(st.Body), "<guide>") {
		t.Error("empty guide should not be written")
	}
}
