package util

import (
	"github.com/ValentinKolb/dLog/lib/common"
	"github.com/spf13/viper"
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}
	if WrapString("") != "" {
		t.Errorf("Expected empty string")
	}
}

func TestGetConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("encoder", "length")
	viper.Set("compress", true)
	viper.Set("sink", "tcp")
	viper.Set("sink-target", "localhost:7070")
	viper.Set("sink-buffer", 8)
	viper.Set("sink-tcp-nodelay", true)

	enc := GetEncoderConfig()
	if enc.Kind != common.EncoderLength || !enc.Compress || enc.Checksum {
		t.Errorf("Unexpected encoder config: %+v", enc)
	}

	s := GetSinkConfig()
	if s.Kind != common.SinkTCP || s.Target != "localhost:7070" || s.BufferSize != 8*1024 || !s.TCPConf.TCPNoDelay {
		t.Errorf("Unexpected sink config: %+v", s)
	}
}

func TestOpenFrameLock(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("encoder", "cobs")
	viper.Set("sink", "none")
	lock, err := OpenFrameLock("util-test")
	if err != nil {
		t.Fatalf("Failed to open frame lock: %v", err)
	}
	if lock.Encoder() != "cobs" {
		t.Errorf("Expected cobs encoder, got %s", lock.Encoder())
	}

	viper.Set("compress", true)
	if _, err := OpenFrameLock("util-test-invalid"); err == nil {
		t.Errorf("Expected error for compressed cobs")
	}
}
