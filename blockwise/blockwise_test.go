package blockwise

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeBlockOption(t *testing.T) {
	for _, tc := range []struct {
		szx  SZX
		num  int
		more bool
	}{
		{SZX16, 0, false},
		{SZX512, 2, false},
		{SZX1024, maxBlockNumber, true},
	} {
		v, err := EncodeBlockOption(tc.szx, tc.num, tc.more)
		require.NoError(t, err)
		szx, num, more, err := DecodeBlockOption(v)
		require.NoError(t, err)
		assert.Equal(t, tc.szx, szx)
		assert.Equal(t, tc.num, num)
		assert.Equal(t, tc.more, more)
	}
}

func TestEncodeBlockOptionInvalid(t *testing.T) {
	_, err := EncodeBlockOption(szxReserved, 0, false)
	assert.ErrorIs(t, err, ErrInvalidSZX)
	_, err = EncodeBlockOption(SZX16, maxBlockNumber+1, false)
	assert.ErrorIs(t, err, ErrBlockNumberExceedLimit)
}

func TestSZXSize(t *testing.T) {
	assert.Equal(t, 16, SZX16.Size())
	assert.Equal(t, 512, SZX512.Size())
	assert.Equal(t, 1024, SZX1024.Size())
	assert.Equal(t, -1, szxReserved.Size())
}

// TestBlock2Download reproduces spec.md §8 scenario S6: a 1400-byte body
// served in 512-byte Block2 blocks.
func TestBlock2Download(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 1400)
	f, err := NewFragmenter(payload, SZX512)
	require.NoError(t, err)

	var reassembled []byte
	for num := 0; ; num++ {
		block, more, err := f.Block(num)
		require.NoError(t, err)
		reassembled = append(reassembled, block...)
		switch num {
		case 0, 1:
			assert.True(t, more)
			assert.Len(t, block, 512)
		case 2:
			assert.False(t, more)
			assert.Len(t, block, 376)
		}
		if !more {
			break
		}
	}
	assert.Equal(t, payload, reassembled)
}

func TestReassemblerRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01, 0x02}, 300) // 600 bytes
	f, err := NewFragmenter(payload, SZX256)
	require.NoError(t, err)

	r := NewReassembler()
	for num := 0; ; num++ {
		block, more, err := f.Block(num)
		require.NoError(t, err)
		done, err := r.Accept(SZX256, num, more, block)
		require.NoError(t, err)
		if !more {
			assert.True(t, done)
			break
		}
		assert.False(t, done)
	}
	assert.Equal(t, payload, r.Payload())
}

func TestReassemblerWindowExceeded(t *testing.T) {
	r := NewReassembler()
	_, err := r.Accept(SZX64, 1, true, make([]byte, 64))
	assert.ErrorIs(t, err, ErrWindowExceeded)
}

func TestReassemblerSZXMismatch(t *testing.T) {
	r := NewReassembler()
	_, err := r.Accept(SZX64, 0, true, make([]byte, 64))
	require.NoError(t, err)
	_, err = r.Accept(SZX128, 1, false, make([]byte, 10))
	assert.ErrorIs(t, err, ErrSZXMismatch)
}

func TestStatusSenderReceiver(t *testing.T) {
	payload := []byte("hello world, this is a blockwise payload")
	sender, err := NewSenderStatus(Block2, payload, SZX16)
	require.NoError(t, err)
	assert.True(t, sender.IsSender())

	receiver := NewReceiverStatus(Block2)
	assert.False(t, receiver.IsSender())

	for num := 0; ; num++ {
		block, more, err := sender.Block(num)
		require.NoError(t, err)
		done, err := receiver.Accept(sender.SZX(), num, more, block)
		require.NoError(t, err)
		if done {
			break
		}
	}
	assert.Equal(t, payload, receiver.Payload())
}

func TestStoreLifetime(t *testing.T) {
	s := NewStore(20 * time.Millisecond)
	token := []byte{0x01, 0x02}
	st := NewReceiverStatus(Block1)
	s.Put(token, st)

	got, ok := s.Get(token)
	require.True(t, ok)
	assert.Same(t, st, got)

	time.Sleep(60 * time.Millisecond)
	_, ok = s.Get(token)
	assert.False(t, ok)
}

func TestPreferredSZXForSize(t *testing.T) {
	assert.Equal(t, SZX512, PreferredSZXForSize(512))
	assert.Equal(t, SZX1024, PreferredSZXForSize(2048))
	assert.Equal(t, SZX16, PreferredSZXForSize(10))
}

func TestNegotiateSZX(t *testing.T) {
	assert.Equal(t, SZX256, NegotiateSZX(SZX512, SZX256, true))
	assert.Equal(t, SZX512, NegotiateSZX(SZX512, SZX1024, true))
	assert.Equal(t, SZX512, NegotiateSZX(SZX512, 0, false))
}
