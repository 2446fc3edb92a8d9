package token

import (
	"encoding/base64"
	"testing"
)

func TestParseBasicAuth(t *testing.T) {
	header := "Basic " + base64.StdEncoding.EncodeToString([]byte("svc:s3cret"))
	id, secret, ok := ParseBasicAuth(header)
	if !ok || id != "svc" || secret != "s3cret" {
		t.Fatalf("got %q/%q ok=%v", id, secret, ok)
	}
}

func TestParseBasicAuthFormDecodesParts(t *testing.T) {
	// RFC 6749 Appendix B: client id and secret are form-urlencoded
	// before base64.
	header := "Basic " + base64.StdEncoding.EncodeToString([]byte("svc%2Bapp:p%40ss%26word"))
	id, secret, ok := ParseBasicAuth(header)
	if !ok || id != "svc+app" || secret != "p@ss&word" {
		t.Fatalf("got %q/%q ok=%v", id, secret, ok)
	}
}

func TestParseBasicAuthRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"Bearer abc",
		"Basic !!!not-base64!!!",
		"Basic " + base64.StdEncoding.EncodeToString([]byte("no-colon")),
	}
	for _, header := range cases {
		if _, _, ok := ParseBasicAuth(header); ok {
			t.Fatalf("header %q accepted", header)
		}
	}
}
