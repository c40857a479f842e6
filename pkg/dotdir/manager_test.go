package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/dotdir"
)

var _ = Describe("Manager", func() {
	var (
		root string
		home string
		m    *dotdir.Manager
	)

	// chdir moves into dir until the test ends.
	chdir := func(dir string) {
		orig, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		DeferCleanup(os.Chdir, orig)
	}

	BeforeEach(func() {
		var err error
		// EvalSymlinks so paths compare equal on macOS, where /var is a link.
		root, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		home = filepath.Join(root, "home")
		Expect(os.Mkdir(home, 0o755)).To(Succeed())
		GinkgoT().Setenv("HOME", home)

		m = dotdir.NewManager()
	})

	Describe("Target", func() {
		BeforeEach(func() {
			GinkgoT().Setenv(dotdir.HomeEnv, "")
		})

		DescribeTable("resolution order",
			func(override string, localDir bool, want func() string) {
				work := filepath.Join(root, "work")
				Expect(os.Mkdir(work, 0o755)).To(Succeed())
				if localDir {
					Expect(os.Mkdir(filepath.Join(work, ".loom"), 0o755)).To(Succeed())
				}
				chdir(work)

				if override != "" {
					override = filepath.Join(root, override)
				}

				got, err := m.Target(override)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(want()))
				Expect(got).To(BeADirectory())
			},
			Entry("override wins over a local .loom", "custom", true,
				func() string { return filepath.Join(root, "custom") }),
			Entry("local .loom in the working directory", "", true,
				func() string { return filepath.Join(root, "work", ".loom") }),
			Entry("~/.loom is created as the fallback", "", false,
				func() string { return filepath.Join(home, ".loom") }),
		)

		It("prefers LOOM_HOME over a local .loom", func() {
			work := filepath.Join(root, "work")
			Expect(os.MkdirAll(filepath.Join(work, ".loom"), 0o755)).To(Succeed())
			chdir(work)
			GinkgoT().Setenv(dotdir.HomeEnv, filepath.Join(root, "shared"))

			got, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(filepath.Join(root, "shared")))

			got, err = m.Target(filepath.Join(root, "custom"))
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(filepath.Join(root, "custom")))
		})

		It("reuses an existing override directory", func() {
			Expect(os.WriteFile(filepath.Join(root, "keep"), []byte("x"), 0o600)).To(Succeed())

			got, err := m.Target(root)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(root))
			Expect(filepath.Join(root, "keep")).To(BeARegularFile())
		})
	})

	Describe("Path", func() {
		It("joins a file name onto the resolved directory", func() {
			p, err := m.Path(root, "loom.sqlite")
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(filepath.Join(root, "loom.sqlite")))
		})
	})

	Describe("WriteFile", func() {
		It("replaces the file with owner-only permissions and leaves no temp files", func() {
			p := filepath.Join(root, "credentials.toml")
			Expect(os.WriteFile(p, []byte("old"), 0o644)).To(Succeed())

			Expect(dotdir.WriteFile(p, []byte("new"))).To(Succeed())

			Expect(os.ReadFile(p)).To(Equal([]byte("new")))
			info, err := os.Stat(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			entries, err := os.ReadDir(root)
			Expect(err).NotTo(HaveOccurred())
			names := []string{}
			for _, e := range entries {
				names = append(names, e.Name())
			}
			Expect(names).To(ConsistOf("home", "credentials.toml"))
		})

		It("fails when the directory is missing", func() {
			Expect(dotdir.WriteFile(filepath.Join(root, "missing", "x"), nil)).NotTo(Succeed())
		})
	})
})
