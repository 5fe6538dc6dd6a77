package vars

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestShort(t *testing.T) {
	convey.Convey("The commit is abbreviated", t, func() {
		oldVersion, oldCommit := Version, Commit
		defer func() { Version, Commit = oldVersion, oldCommit }()

		Version, Commit = "v1.2.0", "da15c174cd2ada1ad247906536c101e8f6799def"
		convey.So(Short(), convey.ShouldEqual, "v1.2.0 (da15c17)")
		convey.So(Info().Commit, convey.ShouldEqual, Commit)

		Commit = "abc"
		convey.So(Short(), convey.ShouldEqual, "v1.2.0 (abc)")
	})
}
