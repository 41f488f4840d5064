package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejisec/tattletale/internal/model"
)

func TestWriteSharedHashesCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSharedHashesCSV(&buf, []model.SharedHashRow{
		{Hash: "NTHASH1", Domain: "CORP", Username: "alice", Cracked: true},
		{Hash: "NTHASH1", Domain: "", Username: "bob", Cracked: true},
		{Hash: "NTHASH2", Domain: "CORP", Username: "we,ird", Cracked: false},
	})
	require.NoError(t, err)

	want := "Hash,Username,Cracked\n" +
		"NTHASH1,CORP\\alice,true\n" +
		"NTHASH1,bob,true\n" +
		"NTHASH2,\"CORP\\we,ird\",false\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSharedHashesCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSharedHashesCSV(&buf, nil))
	assert.Equal(t, "Hash,Username,Cracked\n", buf.String())
}

func TestWriteUserPassTXT(t *testing.T) {
	var buf bytes.Buffer
	err := WriteUserPassTXT(&buf, []model.UserPassRow{
		{Domain: "CORP", Username: "alice", Plaintext: "Password1"},
		{Domain: "", Username: "svc", Plaintext: "pa:ss"},
		{Domain: "CORP", Username: "guest", Plaintext: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "CORP\\alice:Password1\nsvc:pa:ss\nCORP\\guest:\n", buf.String())
}

func TestFilenames(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)
	assert.Equal(t, "tattletale_shared_hashes_2024.03.09_07.05.01.csv", SharedHashesFilename(ts))
	assert.Equal(t, "tattletale_user_pass_2024.03.09_07.05.01.txt", UserPassFilename(ts))
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := &model.Report{
		GeneratedAt:    time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC),
		SharedHashRows: []model.SharedHashRow{{Hash: "H", Domain: "D", Username: "u", Cracked: true}},
		CrackedRows:    []model.UserPassRow{{Domain: "D", Username: "u", Plaintext: "pw"}},
	}

	files, err := WriteAll(dir, r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tattletale_shared_hashes_2024.03.09_07.05.01.csv"), files.SharedHashes)

	csvData, err := os.ReadFile(files.SharedHashes)
	require.NoError(t, err)
	assert.Equal(t, "Hash,Username,Cracked\nH,D\\u,true\n", string(csvData))

	txtData, err := os.ReadFile(files.UserPass)
	require.NoError(t, err)
	assert.Equal(t, "D\\u:pw\n", string(txtData))
}
