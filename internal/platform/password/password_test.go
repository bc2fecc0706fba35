package password

import "testing"

func TestHashers(t *testing.T) {
	hashers := map[string]Hasher{
		// Low bcrypt cost keeps the test fast; production uses 12.
		"bcrypt": &BcryptHasher{Cost: 4},
		"argon2": Argon2Hasher{},
	}

	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			hash, err := h.Hash("pass1234")
			if err != nil {
				t.Fatalf("Hash: %v", err)
			}
			if hash == "pass1234" {
				t.Fatal("stored hash equals plaintext")
			}
			if !h.Compare("pass1234", hash) {
				t.Error("correct password rejected")
			}
			if h.Compare("wrong-pass", hash) {
				t.Error("wrong password accepted")
			}
		})
	}
}

func TestNewHasherSelectsAlgorithm(t *testing.T) {
	if _, ok := NewHasher("argon2id", 12).(Argon2Hasher); !ok {
		t.Error("argon2id did not select the argon2 hasher")
	}
	h, ok := NewHasher("bcrypt", 10).(*BcryptHasher)
	if !ok {
		t.Fatal("bcrypt did not select the bcrypt hasher")
	}
	if h.Cost != 10 {
		t.Errorf("got cost %d, want 10", h.Cost)
	}
	if _, ok := NewHasher("", 12).(*BcryptHasher); !ok {
		t.Error("empty algo must fall back to bcrypt")
	}
}

func TestBcryptCostClamped(t *testing.T) {
	h := NewBcryptHasher(99)
	if h.Cost != 12 {
		t.Errorf("got cost %d, want 12", h.Cost)
	}
}
