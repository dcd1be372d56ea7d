package hypervisor

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	g "github.com/onsi/gomega"
)

type call struct {
	name string
	args []string
}

func recordingClient(out []byte, err error) (*XenStoreClient, *[]call) {
	calls := &[]call{}

	return &XenStoreClient{
		runner: func(_ context.Context, name string, args ...string) ([]byte, error) {
			*calls = append(*calls, call{name: name, args: args})

			return out, err
		},
	}, calls
}

func TestXenStoreWrite(t *testing.T) {
	g.RegisterTestingT(t)

	client, calls := recordingClient(nil, nil)

	err := client.Write(context.Background(), "pci_hard_reset/c3_00-0", "1")

	g.Expect(err).NotTo(g.HaveOccurred())
	g.Expect(*calls).To(g.HaveLen(1))
	g.Expect((*calls)[0].name).To(g.Equal("sudo"))
	g.Expect((*calls)[0].args).To(g.Equal([]string{"xenstore-write", "pci_hard_reset/c3_00-0", "1"}))
}

func TestXenStoreRead_trimsOutput(t *testing.T) {
	g.RegisterTestingT(t)

	client, _ := recordingClient([]byte("1\n"), nil)

	value, err := client.Read(context.Background(), "some/key")

	g.Expect(err).NotTo(g.HaveOccurred())
	g.Expect(value).To(g.Equal("1"))
}

func TestXenStoreExists_absentKeyIsNotAnError(t *testing.T) {
	g.RegisterTestingT(t)

	client, _ := recordingClient(nil, &exec.ExitError{})

	present, err := client.Exists(context.Background(), "some/key")

	g.Expect(err).NotTo(g.HaveOccurred())
	g.Expect(present).To(g.BeFalse())
}

func TestXenStoreExists_executionFailureIsAnError(t *testing.T) {
	g.RegisterTestingT(t)

	client, _ := recordingClient(nil, errors.New("sudo: command not found"))

	_, err := client.Exists(context.Background(), "some/key")

	g.Expect(err).To(g.HaveOccurred())
}

func TestXenStoreRemove(t *testing.T) {
	g.RegisterTestingT(t)

	client, calls := recordingClient(nil, nil)

	g.Expect(client.Remove(context.Background(), "some/key")).To(g.Succeed())
	g.Expect((*calls)[0].args).To(g.Equal([]string{"xenstore-rm", "some/key"}))
}
