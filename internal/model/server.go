package model

import (
	"encoding/json"
	"time"
)

// ServerRecord is the inventory entry describing one physical server and
// its network and boot configuration.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type ServerRecord struct {
	ServerNumber ServerNumber `json:"server_number" yaml:"server_number"`
	Hostname     string       `json:"hostname" yaml:"hostname"`

	PrimaryIP      string `json:"primary_ip" yaml:"primary_ip"`
	PrimaryGateway string `json:"primary_gw" yaml:"primary_gw"`
	PrimaryNetmask string `json:"primary_nm" yaml:"primary_nm"`
	PrimaryMAC     string `json:"primary_mac" yaml:"primary_mac"`

	// Management (out of band) interface, optional.
	MgmtIP      string `json:"mgmt_ip,omitempty" yaml:"mgmt_ip"`
	MgmtGateway string `json:"mgmt_gw,omitempty" yaml:"mgmt_gw"`
	MgmtNetmask string `json:"mgmt_nm,omitempty" yaml:"mgmt_nm"`

	DNSDomain    string `json:"dns_domain_name" yaml:"dns_domain_name"`
	DNSPrimary   string `json:"dns_server_primary" yaml:"dns_server_primary"`
	DNSSecondary string `json:"dns_server_secondary,omitempty" yaml:"dns_server_secondary"`
	DNSTertiary  string `json:"dns_server_tertiary,omitempty" yaml:"dns_server_tertiary"`
	NTPServer    string `json:"ntp_server,omitempty" yaml:"ntp_server"`

	Bootstrapped      bool   `json:"bootstrapped" yaml:"bootstrapped"`
	BootOS            string `json:"boot_os" yaml:"boot_os"`
	BootOSVersion     string `json:"boot_os_version" yaml:"boot_os_version"`
	BootProfile       string `json:"boot_profile" yaml:"boot_profile"`
	BootStatus        string `json:"boot_status" yaml:"boot_status"`
	OperationalStatus string `json:"operational_status" yaml:"operational_status"`

	// ProvisionZone is the name of the zone serving install media to this server.
	ProvisionZone string `json:"provision_zone,omitempty" yaml:"provision_zone"`
}

// SwitchPortBinding associates a server with a switch port it is cabled to.
type SwitchPortBinding struct {
	SwitchName   string       `json:"switch_name" yaml:"switch_name"`
	SwitchPort   string       `json:"switch_port" yaml:"switch_port"`
	ServerNumber ServerNumber `json:"server_number" yaml:"server_number"`
}

// ProvisionZone names the hosts serving install images and package mirrors
// for a group of servers.
type ProvisionZone struct {
	Name       string `json:"zone_name" yaml:"zone_name"`
	ImageHost  string `json:"provision_img_host" yaml:"provision_img_host"`
	MirrorHost string `json:"provision_mirror_host" yaml:"provision_mirror_host"`
}

// Lifecycle fields a MutationResult may refer to.
const (
	FieldBootStatus        = "status_set"
	FieldBootOS            = "os_set"
	FieldOperationalStatus = "status_set"

	OperationSuccess = "success"
	OperationFailure = "failure"

	ReasonDeviceNotFound = "unable to locate device"
)

// MutationResult is returned by the lifecycle setters, a missing server is
// reported as a failure result instead of an error.
type MutationResult struct {
	Operation string
	Field     string
	Value     string
	Reason    string
}

// Succeeded returns true when the mutation was applied.
func (m MutationResult) Succeeded() bool {
	return m.Operation == OperationSuccess
}

func MutationSuccess(field, value string) MutationResult {
	return MutationResult{Operation: OperationSuccess, Field: field, Value: value}
}

func MutationFailure(reason string) MutationResult {
	return MutationResult{Operation: OperationFailure, Reason: reason}
}

// MarshalJSON renders the result as {"operation": .., <field>: <value>} or
// {"operation": "failure", "reason": ..}.
func (m MutationResult) MarshalJSON() ([]byte, error) {
	out := map[string]string{"operation": m.Operation}

	if m.Succeeded() {
		out[m.Field] = m.Value
	} else {
		out["reason"] = m.Reason
	}

	return json.Marshal(out)
}

// Lifecycle fields a LifecycleEvent may refer to.
const (
	EventFieldBootStatus        = "boot_status"
	EventFieldBootOS            = "boot_os"
	EventFieldOperationalStatus = "operational_status"
)

// LifecycleEvent is published when a lifecycle field of a server is changed.
type LifecycleEvent struct {
	ID           string       `json:"id"`
	ServerNumber ServerNumber `json:"server_number"`
	Field        string       `json:"field"`
	Value        string       `json:"value"`
	Timestamp    time.Time    `json:"timestamp"`
}
