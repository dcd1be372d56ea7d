package mobo

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	g "github.com/onsi/gomega"

	"ttreset/pkg/errors"
	"ttreset/pkg/models"
)

type postCall struct {
	unit       string
	endpoint   string
	body       map[string]any
	checkError bool
}

type fakeUnitClient struct {
	mu       sync.Mutex
	versions map[string]*semver.Version
	// progress yields successive boot/progress payloads per unit.
	progress map[string][]map[string]any
	pos      map[string]int
	postErr  map[string]error
	posts    []postCall
	gets     []string
}

func newFakeUnitClient() *fakeUnitClient {
	return &fakeUnitClient{
		versions: map[string]*semver.Version{},
		progress: map[string][]map[string]any{},
		pos:      map[string]int{},
		postErr:  map[string]error{},
	}
}

func (f *fakeUnitClient) Version(_ context.Context, unit string) *semver.Version {
	f.mu.Lock()
	defer f.mu.Unlock()

	if v, ok := f.versions[unit]; ok {
		return v
	}

	return semver.New(0, 0, 0, "", "")
}

func (f *fakeUnitClient) Get(_ context.Context, unit, endpoint string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets = append(f.gets, unit+"/"+endpoint)

	samples := f.progress[unit]
	if len(samples) == 0 {
		return map[string]any{"boot_percent": float64(100)}, nil
	}

	pos := f.pos[unit]
	if pos >= len(samples) {
		pos = len(samples) - 1
	}

	f.pos[unit] = pos + 1

	return samples[pos], nil
}

func (f *fakeUnitClient) Post(_ context.Context, unit, endpoint string, body any, checkError bool) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bodyMap, _ := body.(map[string]any)
	f.posts = append(f.posts, postCall{unit: unit, endpoint: endpoint, body: bodyMap, checkError: checkError})

	if err := f.postErr[unit+"/"+endpoint]; err != nil {
		return nil, err
	}

	return nil, nil
}

func (f *fakeUnitClient) postsFor(endpoint string) []postCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []postCall

	for _, p := range f.posts {
		if p.endpoint == endpoint {
			out = append(out, p)
		}
	}

	return out
}

type fakeResetter struct {
	mu       sync.Mutex
	requests []models.ResetRequest
	err      error
}

func (f *fakeResetter) Reset(_ context.Context, req models.ResetRequest) ([]models.ResetOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)

	return nil, f.err
}

type fakeHostInfo struct {
	version string
	verErr  error
}

func (f *fakeHostInfo) Platform() string { return "x86_64" }
func (f *fakeHostInfo) Hostname() string { return "testhost" }

func (f *fakeHostInfo) DriverVersion() (string, error) {
	return f.version, f.verErr
}

func testOrchestrator(client UnitClient, resetter LinkResetter) *Orchestrator {
	o := NewOrchestrator(client, resetter)
	o.sleep = func(time.Duration) {}

	return o
}

func TestWarmBoot(t *testing.T) {
	g.RegisterTestingT(t)

	client := newFakeUnitClient()
	client.versions["mobo-a"] = semver.New(1, 3, 2, "", "")
	client.versions["mobo-b"] = semver.New(0, 2, 0, "", "")

	resetter := &fakeResetter{}
	o := testOrchestrator(client, resetter)

	mobos := []models.MoboDescriptor{
		{
			Address:           "mobo-a",
			RetimerPorts:      []string{"0:0", "0:1"},
			DisabledPorts:     []string{"1:2"},
			HostLinkDeviceIDs: []int{2, 3},
		},
		{
			Address:           "mobo-b",
			HostLinkDeviceIDs: []int{3, 4},
		},
	}

	g.Expect(o.WarmBoot(context.Background(), mobos)).To(g.Succeed())

	// Retimer boot only for the unit that declares ports; the modern
	// endpoint receives the port-disable list.
	boots := client.postsFor("boot")
	g.Expect(boots).To(g.HaveLen(1))
	g.Expect(boots[0].unit).To(g.Equal("mobo-a"))
	g.Expect(boots[0].body).To(g.HaveKeyWithValue("credo", true))
	g.Expect(boots[0].body).To(g.HaveKey("disable_sel"))

	// Boot progress is only polled on units that expose it.
	g.Expect(client.gets).To(g.ContainElement("mobo-a/boot/progress"))
	g.Expect(client.gets).NotTo(g.ContainElement("mobo-b/boot/progress"))

	// Module shutdown is tolerant, module boot is not.
	shutdowns := client.postsFor("shutdown/modules")
	g.Expect(shutdowns).To(g.HaveLen(2))
	g.Expect(shutdowns[0].checkError).To(g.BeFalse())

	moduleBoots := client.postsFor("boot/modules")
	g.Expect(moduleBoots).To(g.HaveLen(2))
	g.Expect(moduleBoots[0].checkError).To(g.BeTrue())

	// One link reset covers the whole fleet's host devices.
	g.Expect(resetter.requests).To(g.HaveLen(1))
	g.Expect(resetter.requests[0].UniqueDeviceIDs()).To(g.Equal([]int{2, 3, 4}))
}

func TestWarmBoot_emptyFleet(t *testing.T) {
	g.RegisterTestingT(t)

	client := newFakeUnitClient()
	resetter := &fakeResetter{}

	g.Expect(testOrchestrator(client, resetter).WarmBoot(context.Background(), nil)).To(g.Succeed())
	g.Expect(client.posts).To(g.BeEmpty())
	g.Expect(resetter.requests).To(g.BeEmpty())
}

func TestWarmBoot_oldEndpointDropsPortDisable(t *testing.T) {
	g.RegisterTestingT(t)

	client := newFakeUnitClient()
	client.versions["mobo-a"] = semver.New(1, 0, 0, "", "")

	o := testOrchestrator(client, &fakeResetter{})

	mobos := []models.MoboDescriptor{{
		Address:       "mobo-a",
		RetimerPorts:  []string{"0:0"},
		DisabledPorts: []string{"1:2"},
	}}

	g.Expect(o.WarmBoot(context.Background(), mobos)).To(g.Succeed())

	boots := client.postsFor("boot")
	g.Expect(boots).To(g.HaveLen(1))
	g.Expect(boots[0].body).NotTo(g.HaveKey("disable_sel"))
}

func TestWarmBoot_pollsProgressUntilComplete(t *testing.T) {
	g.RegisterTestingT(t)

	client := newFakeUnitClient()
	client.versions["mobo-a"] = semver.New(1, 3, 2, "", "")
	client.progress["mobo-a"] = []map[string]any{
		{"boot_percent": float64(40), "step": "retimer init"},
		{"boot_percent": "80.5", "step": "link train"},
		{"boot_percent": float64(100), "step": "done"},
	}

	o := testOrchestrator(client, &fakeResetter{})

	mobos := []models.MoboDescriptor{{Address: "mobo-a", RetimerPorts: []string{"0:0"}}}

	g.Expect(o.WarmBoot(context.Background(), mobos)).To(g.Succeed())

	polls := 0

	for _, get := range client.gets {
		if get == "mobo-a/boot/progress" {
			polls++
		}
	}

	g.Expect(polls).To(g.Equal(3))
}

func TestWarmBoot_bootTimeout(t *testing.T) {
	g.RegisterTestingT(t)

	client := newFakeUnitClient()
	client.versions["mobo-a"] = semver.New(0, 3, 0, "", "")

	o := testOrchestrator(client, &fakeResetter{})
	o.bootTimeout = -time.Millisecond

	err := o.WarmBoot(context.Background(), []models.MoboDescriptor{{Address: "mobo-a"}})

	g.Expect(err).To(g.HaveOccurred())
	g.Expect(err.Error()).To(g.ContainSubstring("boot timeout"))
}

// The driver gate must trip before any rack-unit mutation. Tripping it at
// the link-reset phase instead would strand the fleet with its compute
// modules already shut down and boot/modules never reached.
func TestWarmBoot_driverGateBeforeAnyMutation(t *testing.T) {
	g.RegisterTestingT(t)

	client := newFakeUnitClient()
	client.versions["mobo-a"] = semver.New(1, 3, 2, "", "")

	resetter := &fakeResetter{}
	o := testOrchestrator(client, resetter).WithDriverGate(&fakeHostInfo{version: "1.25.0"})

	mobos := []models.MoboDescriptor{{
		Address:           "mobo-a",
		RetimerPorts:      []string{"0:0"},
		HostLinkDeviceIDs: []int{0},
	}}

	err := o.WarmBoot(context.Background(), mobos)

	var gateErr errors.CapabilityGateError
	g.Expect(stderrors.As(err, &gateErr)).To(g.BeTrue())
	g.Expect(gateErr.Operation).To(g.Equal("boot mobo"))

	g.Expect(client.posts).To(g.BeEmpty())
	g.Expect(client.gets).To(g.BeEmpty())
	g.Expect(resetter.requests).To(g.BeEmpty())
}

func TestWarmBoot_driverGateSatisfied(t *testing.T) {
	g.RegisterTestingT(t)

	client := newFakeUnitClient()
	client.versions["mobo-a"] = semver.New(1, 3, 2, "", "")

	o := testOrchestrator(client, &fakeResetter{}).WithDriverGate(&fakeHostInfo{version: "1.26.0"})

	g.Expect(o.WarmBoot(context.Background(), []models.MoboDescriptor{{Address: "mobo-a"}})).To(g.Succeed())
}

func TestWarmBoot_driverUnreadableStopsEverything(t *testing.T) {
	g.RegisterTestingT(t)

	client := newFakeUnitClient()
	o := testOrchestrator(client, &fakeResetter{}).WithDriverGate(&fakeHostInfo{verErr: stderrors.New("no driver")})

	err := o.WarmBoot(context.Background(), []models.MoboDescriptor{{Address: "mobo-a"}})

	g.Expect(err).To(g.HaveOccurred())
	g.Expect(client.posts).To(g.BeEmpty())
}

// A failed phase stops the sequence; later phases must never run against
// a fleet in an inconsistent state.
func TestWarmBoot_phaseFailureStopsAdvancement(t *testing.T) {
	g.RegisterTestingT(t)

	client := newFakeUnitClient()
	client.versions["mobo-a"] = semver.New(1, 3, 2, "", "")
	client.versions["mobo-b"] = semver.New(1, 3, 2, "", "")
	client.postErr["mobo-a/boot"] = errors.RemoteProtocolError{Unit: "mobo-a", Endpoint: "boot", Detail: "retimer fault"}

	resetter := &fakeResetter{}
	o := testOrchestrator(client, resetter)

	mobos := []models.MoboDescriptor{
		{Address: "mobo-a", RetimerPorts: []string{"0:0"}, HostLinkDeviceIDs: []int{0}},
		{Address: "mobo-b", RetimerPorts: []string{"0:0"}, HostLinkDeviceIDs: []int{1}},
	}

	err := o.WarmBoot(context.Background(), mobos)

	g.Expect(err).To(g.HaveOccurred())
	g.Expect(err.Error()).To(g.ContainSubstring("retimer fault"))

	// Both units attempted the failing phase, nothing past it ran.
	g.Expect(client.postsFor("boot")).To(g.HaveLen(2))
	g.Expect(client.gets).To(g.BeEmpty())
	g.Expect(client.postsFor("shutdown/modules")).To(g.BeEmpty())
	g.Expect(resetter.requests).To(g.BeEmpty())
}
