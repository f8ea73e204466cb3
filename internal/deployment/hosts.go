package deployment

import (
	"encoding/base64"
	"fmt"
	"math/rand/v2"
)

const (
	frontendPrefix = "accounts."
	backendPrefix  = "api."
	mailFromPrefix = "send."
)

// ProductionHosts derives the hostname triple for a customer domain.
func ProductionHosts(domain string) Hosts {
	return Hosts{
		Frontend: frontendPrefix + domain,
		Backend:  backendPrefix + domain,
		MailFrom: mailFromPrefix + domain,
	}
}

// StagingHosts derives the hostname triple for a platform-hosted label.
func StagingHosts(label, baseDomain string) Hosts {
	return ProductionHosts(label + "." + baseDomain)
}

// PublishableKey encodes the backend host so client SDKs can locate the API
// from the key alone.
func PublishableKey(mode Mode, backendHost string) string {
	prefix := "pk_test_"
	if mode == ModeProduction {
		prefix = "pk_live_"
	}
	return prefix + base64.RawURLEncoding.EncodeToString([]byte(backendHost+"$"))
}

var (
	stagingAdjectives = []string{
		"amber", "brave", "calm", "daring", "eager", "fancy", "gentle", "happy",
		"icy", "jolly", "keen", "lively", "mellow", "noble", "odd", "proud",
		"quiet", "rapid", "sunny", "tidy", "upbeat", "vivid", "witty", "young",
	}
	stagingNouns = []string{
		"anchor", "badger", "canyon", "dolphin", "ember", "falcon", "glacier", "harbor",
		"island", "jaguar", "koala", "lantern", "meadow", "nebula", "otter", "pepper",
		"quartz", "river", "summit", "tiger", "umbra", "valley", "walrus", "zephyr",
	}
)

// stagingLabel builds "<adjective>-<noun>-<n>". The counter keeps labels unique
// across instances; the words only make them readable.
func stagingLabel(n int64) string {
	adj := stagingAdjectives[rand.IntN(len(stagingAdjectives))]
	noun := stagingNouns[rand.IntN(len(stagingNouns))]
	return fmt.Sprintf("%s-%s-%d", adj, noun, n)
}
