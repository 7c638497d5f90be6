//go:build windows

package sandbox

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/fenrirlabs/agentcore/internal/protocol"
)

// appContainerProfileName is the stable name under which the sandbox's
// AppContainer profile is created/reused. Windows identifies profiles by
// name, not by PID, so the same profile (and SID) is reused across runs.
const appContainerProfileName = "AgentCoreSandbox"

// CreateAppContainerProfile / DeriveAppContainerSidFromAppContainerName /
// DeleteAppContainerProfile live in userenv.dll, which golang.org/x/sys/windows
// does not wrap; looked up lazily via LazyDLL so the symbols resolve at call
// time rather than at link time.
var (
	moduserenv                        = windows.NewLazySystemDLL("userenv.dll")
	procCreateAppContainerProfile     = moduserenv.NewProc("CreateAppContainerProfile")
	procDeriveAppContainerSidFromName = moduserenv.NewProc("DeriveAppContainerSidFromAppContainerName")
	procDeleteAppContainerProfile     = moduserenv.NewProc("DeleteAppContainerProfile")
)

const procThreadAttributeSecurityCapabilities = 0x00020009 // PROC_THREAD_ATTRIBUTE_SECURITY_CAPABILITIES

// securityCapabilities mirrors the Win32 SECURITY_CAPABILITIES struct.
type securityCapabilities struct {
	AppContainerSid *windows.SID
	Capabilities    uintptr
	CapabilityCount uint32
	Reserved        uint32
}

// WindowsSandbox creates or reuses a named AppContainer profile and grants
// the container SID access to the policy's writable roots via inheritable
// ACLs. See Transform for how the command itself is launched.
//
// Maps to: codex-rs/core/src/sandbox — Windows has no reference
// implementation in the original; this backend is built from scratch in
// the shape of the macOS/Linux backends (CommandSpec/ExecEnv in, platform
// launch mechanics out).
type WindowsSandbox struct{}

func (w *WindowsSandbox) Available() bool {
	return procCreateAppContainerProfile.Find() == nil
}

func (w *WindowsSandbox) Name() string { return "windows_appcontainer" }

// Transform does not rewrite the command line (unlike bwrap/sandbox-exec):
// the AppContainer boundary is applied at process-creation time via a
// security-capabilities attribute, not by wrapping argv. ExecEnv.Command is
// returned unchanged. This file builds that attribute
// (buildSecurityCapabilities, newSecurityCapabilitiesAttributeList), but no
// code in the repository passes it to process creation, so a command run
// from ExecEnv does not run inside the AppContainer.
func (w *WindowsSandbox) Transform(spec CommandSpec, policy *protocol.SandboxPolicy) (*ExecEnv, error) {
	if policy == nil || policy.HasFullAccess() {
		return &ExecEnv{Command: append([]string{spec.Program}, spec.Args...), Cwd: spec.Cwd}, nil
	}

	env := map[string]string{"CODEX_SANDBOX": "windows_appcontainer"}
	if !policy.NetworkAccess {
		env["CODEX_SANDBOX_NETWORK_DISABLED"] = "1"
	}

	sid, err := ensureAppContainerProfile()
	if err != nil {
		return nil, fmt.Errorf("creating AppContainer profile: %w", err)
	}

	for _, root := range DeriveWritableRoots(policy, spec.Cwd) {
		if err := grantAppContainerACL(sid, root); err != nil {
			return nil, fmt.Errorf("granting ACL on %s: %w", root, err)
		}
	}

	return &ExecEnv{
		Command: append([]string{spec.Program}, spec.Args...),
		Cwd:     spec.Cwd,
		Env:     env,
	}, nil
}

// ensureAppContainerProfile creates appContainerProfileName if it does not
// already exist, and returns its SID either way.
func ensureAppContainerProfile() (*windows.SID, error) {
	namePtr, err := syscall.UTF16PtrFromString(appContainerProfileName)
	if err != nil {
		return nil, err
	}
	descPtr, err := syscall.UTF16PtrFromString("agent runtime core sandbox")
	if err != nil {
		return nil, err
	}

	var sid *windows.SID
	r, _, _ := procCreateAppContainerProfile.Call(
		uintptr(unsafe.Pointer(namePtr)),
		uintptr(unsafe.Pointer(namePtr)),
		uintptr(unsafe.Pointer(descPtr)),
		0, 0,
		uintptr(unsafe.Pointer(&sid)),
	)
	// HRESULT 0x800700B7 == ERROR_ALREADY_EXISTS wrapped: profile already
	// present is the expected steady-state, not a failure.
	if r != 0 && r != 0x800700B7 {
		return deriveAppContainerSid()
	}
	if sid != nil {
		return sid, nil
	}
	return deriveAppContainerSid()
}

func deriveAppContainerSid() (*windows.SID, error) {
	namePtr, err := syscall.UTF16PtrFromString(appContainerProfileName)
	if err != nil {
		return nil, err
	}
	var sid *windows.SID
	r, _, callErr := procDeriveAppContainerSidFromName.Call(
		uintptr(unsafe.Pointer(namePtr)),
		uintptr(unsafe.Pointer(&sid)),
	)
	if r != 0 {
		return nil, fmt.Errorf("DeriveAppContainerSidFromAppContainerName: %w", callErr)
	}
	return sid, nil
}

// grantAppContainerACL grants the AppContainer SID an inheritable
// read/write/execute ACE on path, using Windows' native SetNamedSecurityInfo
// via golang.org/x/sys/windows's ACL helpers.
func grantAppContainerACL(sid *windows.SID, path string) error {
	explicitAccess := []windows.EXPLICIT_ACCESS{{
		AccessPermissions: windows.GENERIC_ALL,
		AccessMode:        windows.GRANT_ACCESS,
		Inheritance:       windows.SUB_CONTAINERS_AND_OBJECTS_INHERIT,
		Trustee: windows.TRUSTEE{
			TrusteeForm: windows.TRUSTEE_IS_SID,
			TrusteeType: windows.TRUSTEE_IS_WELL_KNOWN_GROUP,
			Name:        (*uint16)(unsafe.Pointer(sid)),
		},
	}}

	newACL, err := windows.ACLFromEntries(explicitAccess, nil)
	if err != nil {
		return fmt.Errorf("building ACL: %w", err)
	}

	return windows.SetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION,
		nil, nil, newACL, nil,
	)
}

// buildSecurityCapabilities assembles the SECURITY_CAPABILITIES block for
// UpdateProcThreadAttribute. Nothing in the repository calls it; child
// processes are started through os/exec without this attribute list.
func buildSecurityCapabilities(sid *windows.SID, allowNetwork bool) *securityCapabilities {
	caps := &securityCapabilities{AppContainerSid: sid}
	if allowNetwork {
		// WinCapabilityInternetClient (well-known capability RID 1).
		caps.Capabilities = 1
		caps.CapabilityCount = 1
	}
	return caps
}

// DeleteAppContainerProfile removes the named profile. Nothing in the
// repository calls it; sandboxed execution reuses the profile across runs.
func DeleteAppContainerProfile() error {
	namePtr, err := syscall.UTF16PtrFromString(appContainerProfileName)
	if err != nil {
		return err
	}
	r, _, callErr := procDeleteAppContainerProfile.Call(uintptr(unsafe.Pointer(namePtr)))
	if r != 0 {
		return callErr
	}
	return nil
}

// newSecurityCapabilitiesAttributeList builds a thread attribute list
// carrying SECURITY_CAPABILITIES, for passing to CreateProcess via
// STARTUPINFOEX.lpAttributeList. The caller is responsible for freeing the
// returned buffer's underlying attribute list via DeleteProcThreadAttributeList.
func newSecurityCapabilitiesAttributeList(caps *securityCapabilities) (*windows.ProcThreadAttributeListContainer, error) {
	list, err := windows.NewProcThreadAttributeList(1)
	if err != nil {
		return nil, fmt.Errorf("NewProcThreadAttributeList: %w", err)
	}
	if err := list.Update(
		procThreadAttributeSecurityCapabilities,
		unsafe.Pointer(caps),
		unsafe.Sizeof(*caps),
	); err != nil {
		return nil, fmt.Errorf("UpdateProcThreadAttribute(security capabilities): %w", err)
	}
	return list, nil
}
