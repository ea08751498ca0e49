// DoodleDuel - community drawing and guessing platform
// Copyright (C) 2026 DoodleDuel contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package dictionary

// DefaultWords returns the built-in seed list for freshly installed
// communities. Entries are normalized on insertion.
func DefaultWords() []string {
	return []string{
		"Airplane", "Anchor", "Angel", "Ant", "Apple",
		"Astronaut", "Avocado", "Backpack", "Balloon", "Banana",
		"Barn", "Baseball", "Bat", "Beach", "Bear",
		"Bee", "Bicycle", "Boat", "Book", "Bridge",
		"Broom", "Butterfly", "Cactus", "Cake", "Camel",
		"Camera", "Campfire", "Candle", "Canoe", "Castle",
		"Cat", "Caterpillar", "Chair", "Cheese", "Church",
		"Circus", "Cloud", "Clown", "Compass", "Cookie",
		"Cow", "Crab", "Crayon", "Crown", "Cupcake",
		"Dinosaur", "Dog", "Dolphin", "Donut", "Dragon",
		"Drum", "Duck", "Eagle", "Elephant", "Envelope",
		"Eye", "Feather", "Fire Truck", "Fish", "Flamingo",
		"Flower", "Fox", "Frog", "Ghost", "Giraffe",
		"Guitar", "Hamburger", "Hammer", "Hedgehog", "Helicopter",
		"Hot Dog", "Ice Cream", "Igloo", "Island", "Jellyfish",
		"Kangaroo", "Key", "Kite", "Ladder", "Lighthouse",
		"Lion", "Lizard", "Mailbox", "Mermaid", "Monkey",
		"Moon", "Mountain", "Mushroom", "Octopus", "Owl",
		"Palm Tree", "Panda", "Peacock", "Penguin", "Piano",
		"Pineapple", "Pirate", "Pizza", "Pumpkin", "Rabbit",
		"Rainbow", "Robot", "Rocket", "Sailboat", "Sandwich",
		"Scarecrow", "Shark", "Sheep", "Skateboard", "Snail",
		"Snake", "Snowman", "Spider", "Squirrel", "Starfish",
		"Strawberry", "Submarine", "Sun", "Sunflower", "Swan",
		"Telescope", "Tent", "Tiger", "Tornado", "Tractor",
		"Train", "Treehouse", "Turtle", "Umbrella", "Unicorn",
		"Volcano", "Waterfall", "Whale", "Windmill", "Wizard",
	}
}
